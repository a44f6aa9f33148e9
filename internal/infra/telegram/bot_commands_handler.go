// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notAuthorizedText = "Этот бот отправляет уведомления только в настроенный чат."

// BotInfo describes the running poller for /start and /help replies.
type BotInfo struct {
	ChatID        int64
	Endpoint      string
	RetryInterval time.Duration
	Schedule      string
}

func RegisterBotCommands(b *telebot.Bot, info BotInfo, baseLogger *logrus.Entry) {
	logCtx := baseLogger.WithField("handler_group", "start_help")
	b.Handle("/start", startHandler(info, logCtx))
	b.Handle("/help", helpHandler(info, logCtx))
}

func startHandler(info BotInfo, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(commandFields(c, "/start"))
		logCtx.Info("Processing /start command")

		if !fromConfiguredChat(c, info.ChatID) {
			logCtx.Warn("Command from an unknown chat")
			return c.Send(notAuthorizedText)
		}

		name := "!"
		if c.Sender() != nil && c.Sender().FirstName != "" {
			name = ", " + c.Sender().FirstName + "!"
		}
		return c.Send(fmt.Sprintf("Привет%s Я слежу за статусом проверки домашних работ и сообщу, когда он изменится.", name))
	}
}

func helpHandler(info BotInfo, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(commandFields(c, "/help"))
		logCtx.Info("Processing /help command")

		if !fromConfiguredChat(c, info.ChatID) {
			logCtx.Warn("Command from an unknown chat")
			return c.Send(notAuthorizedText)
		}

		var helpText strings.Builder
		helpText.WriteString("Я опрашиваю API проверки домашних работ и присылаю сообщение, когда меняется статус последней работы.\n\n")
		if info.Schedule != "" {
			helpText.WriteString(fmt.Sprintf("Расписание опроса: %s\n", info.Schedule))
		} else {
			helpText.WriteString(fmt.Sprintf("Интервал опроса: %s\n", info.RetryInterval))
		}
		helpText.WriteString(fmt.Sprintf("Адрес API: %s\n\n", info.Endpoint))
		helpText.WriteString("/start - Приветствие.\n")
		helpText.WriteString("/help - Показать это сообщение.")
		return c.Send(helpText.String())
	}
}

func fromConfiguredChat(c telebot.Context, chatID int64) bool {
	return c.Chat() != nil && c.Chat().ID == chatID
}

func commandFields(c telebot.Context, command string) logrus.Fields {
	fields := logrus.Fields{"command": command}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if c.Chat() != nil {
		fields["chat_id"] = c.Chat().ID
	}
	return fields
}
