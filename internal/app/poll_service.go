// internal/app/poll_service.go
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homework_status_bot/internal/domain/homework"
	domainTelegram "homework_status_bot/internal/domain/telegram"
	"homework_status_bot/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

const failureMessagePrefix = "Сбой в работе программы: "

var errNullField = errors.New("value is null")

// Derivation is the outcome of comparing the latest submission with the cache.
// An empty Message means there is nothing to send.
type Derivation struct {
	Message string
	Cache   homework.StatusCache
}

// HasMessage reports whether the derivation produced a notification.
func (d Derivation) HasMessage() bool {
	return d.Message != ""
}

// PollService implements a single fetch-extract-derive-notify cycle.
type PollService struct {
	fetcher        homework.Fetcher
	telegramClient domainTelegram.Client
	chatID         int64
	retryInterval  time.Duration
	logger         *logrus.Entry
	now            func() time.Time
}

func NewPollService(
	fetcher homework.Fetcher,
	tc domainTelegram.Client,
	chatID int64,
	retryInterval time.Duration,
	logger *logrus.Entry,
) *PollService {
	return &PollService{
		fetcher:        fetcher,
		telegramClient: tc,
		chatID:         chatID,
		retryInterval:  retryInterval,
		logger:         logger,
		now:            time.Now,
	}
}

// RunCycle performs one cycle starting from cache and returns the cache to use
// for the next one. since is the lower bound of the query window; a zero since
// means now minus the retry interval. On error the input cache is returned unchanged.
func (s *PollService) RunCycle(ctx context.Context, cache homework.StatusCache, since time.Time) (homework.StatusCache, error) {
	log := logger.FromContext(ctx, s.logger)

	from := since
	if from.IsZero() {
		from = s.now().Add(-s.retryInterval)
	}
	resp, err := s.fetcher.FetchStatuses(ctx, from)
	if err != nil {
		return cache, err
	}

	rec, found, err := s.ExtractLatest(ctx, resp)
	if err != nil {
		return cache, err
	}

	d, err := s.DeriveNotification(ctx, cache, rec, found)
	if err != nil {
		return cache, err
	}

	if d.HasMessage() {
		s.Notify(ctx, d.Message)
	} else {
		log.Debug("No new status to report")
	}
	return d.Cache, nil
}

// ExtractLatest returns the newest submission from resp. found is false when
// the API returned an empty list.
func (s *PollService) ExtractLatest(ctx context.Context, resp homework.Response) (rec homework.Record, found bool, err error) {
	log := logger.FromContext(ctx, s.logger)

	raw, ok := resp[homework.KeyHomeworks]
	if !ok {
		log.Error(`Key "homeworks" is missing from the API response`)
		return nil, false, homework.ErrHomeworksMissing
	}

	var items []json.RawMessage
	if !isJSONArray(raw) {
		log.Errorf(`Key "homeworks" has unexpected type: %s`, truncate(raw, 64))
		return nil, false, homework.ErrHomeworksNotList
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		log.WithError(err).Error(`Key "homeworks" could not be decoded`)
		return nil, false, fmt.Errorf("%w: %v", homework.ErrHomeworksNotList, err)
	}

	if len(items) == 0 {
		log.Debug("No submissions in the response")
		return nil, false, nil
	}

	if err := json.Unmarshal(items[0], &rec); err != nil || rec == nil {
		log.Errorf("Latest submission is not an object: %s", truncate(items[0], 64))
		return nil, false, homework.ErrMalformedSubmission
	}
	return rec, true, nil
}

// DeriveNotification compares rec against cache. When the status changed to a
// known value it returns the message to send and the updated cache; in every
// other case the returned cache equals the input.
func (s *PollService) DeriveNotification(ctx context.Context, cache homework.StatusCache, rec homework.Record, found bool) (Derivation, error) {
	log := logger.FromContext(ctx, s.logger)
	unchanged := Derivation{Cache: cache}

	if !found {
		return unchanged, nil
	}

	name, err := stringField(rec, homework.KeyHomeworkName)
	if err != nil {
		log.WithError(err).Error("Submission does not match the API contract")
		return unchanged, err
	}
	rawStatus, err := stringField(rec, homework.KeyStatus)
	if err != nil {
		log.WithError(err).Error("Submission does not match the API contract")
		return unchanged, err
	}
	status := homework.Status(rawStatus)

	if cache.Seen(status) {
		log.WithField("status", status).Debug("Status has not changed")
		return unchanged, nil
	}

	verdict, ok := homework.Verdict(status)
	if !ok {
		log.WithFields(logrus.Fields{
			"homework_name": name,
			"status":        status,
		}).Error("Unknown homework status in the API response")
		return unchanged, nil
	}

	log.WithFields(logrus.Fields{
		"homework_name": name,
		"old_status":    cache.Last,
		"new_status":    status,
	}).Info("Homework status changed")

	return Derivation{
		Message: fmt.Sprintf(`Изменился статус проверки работы "%s". %s`, name, verdict),
		Cache:   cache.With(status),
	}, nil
}

// Notify sends msg to the configured chat. Errors are logged, never returned.
func (s *PollService) Notify(ctx context.Context, msg string) {
	log := logger.FromContext(ctx, s.logger).WithField("chat_id", s.chatID)
	if msg == "" {
		log.Warn("Refusing to send an empty message")
		return
	}
	if err := s.telegramClient.SendMessage(ctx, s.chatID, msg, nil); err != nil {
		log.WithError(err).Error("Failed to send message to Telegram")
		return
	}
	log.Info("Message sent")
}

// ReportFailure notifies the chat that a cycle failed with err.
func (s *PollService) ReportFailure(ctx context.Context, err error) {
	logger.FromContext(ctx, s.logger).WithError(err).Error("Poll cycle failed")
	s.Notify(ctx, FailureMessage(err))
}

// FailureMessage formats the text sent when a cycle fails.
func FailureMessage(err error) string {
	return failureMessagePrefix + err.Error()
}

func stringField(rec homework.Record, key string) (string, error) {
	raw, ok := rec[key]
	if !ok {
		return "", &homework.ContractError{Key: key}
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", &homework.ContractError{Key: key, Err: errNullField}
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &homework.ContractError{Key: key, Err: err}
	}
	return v, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func truncate(raw json.RawMessage, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
