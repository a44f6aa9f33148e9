// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Telegram allows roughly one message per second to the same chat.
const (
	defaultSendInterval = time.Second
	defaultSendBurst    = 1
)

// sender is the part of *telebot.Bot the adapter needs.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot     sender
	limiter *rate.Limiter
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return newTelebotAdapter(b, rate.NewLimiter(rate.Every(defaultSendInterval), defaultSendBurst))
}

func newTelebotAdapter(s sender, limiter *rate.Limiter) *TelebotAdapter {
	return &TelebotAdapter{bot: s, limiter: limiter}
}

// SendMessage sends a text message to the specified chat, waiting for the
// send limiter first.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, chatID int64, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send limiter: %w", err)
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}

	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}
