// internal/infra/practicum/client.go
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the homework statuses endpoint of the review API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

const maxResponseBodySize = 1 << 20 // 1MB

// Client queries the review API. It implements homework.Fetcher.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient creates a Client. A zero timeout leaves requests bounded only by
// the caller's context.
func NewClient(endpoint, token string, timeout time.Duration, logger *logrus.Entry) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchStatuses requests submissions updated since from. Any transport
// failure, non-200 answer or undecodable body is returned as *homework.FetchError.
func (c *Client) FetchStatuses(ctx context.Context, from time.Time) (homework.Response, error) {
	log := c.logger.WithField("from_date", from.Unix())

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &homework.FetchError{Op: "request", Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from.Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &homework.FetchError{Op: "request", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Homework API is unreachable")
		return nil, &homework.FetchError{Op: "request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		log.WithError(err).Error("Failed to read homework API response")
		return nil, &homework.FetchError{Op: "request", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.WithField("status_code", resp.StatusCode).Error("Homework API returned an unexpected status")
		return nil, &homework.FetchError{Op: "status", StatusCode: resp.StatusCode}
	}

	var out homework.Response
	if err := json.Unmarshal(body, &out); err != nil {
		log.WithError(err).Error("Homework API returned malformed JSON")
		return nil, &homework.FetchError{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	if out == nil {
		log.Error("Homework API returned null")
		return nil, &homework.FetchError{Op: "decode", StatusCode: resp.StatusCode, Err: fmt.Errorf("response body is null")}
	}

	log.Debug("Homework API response received")
	return out, nil
}
