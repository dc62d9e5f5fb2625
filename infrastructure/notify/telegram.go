package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
)

// TelegramSender is the subset of tgbotapi.BotAPI used for notifications
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a short message per finished render to one chat
type Telegram struct {
	bot    TelegramSender
	chatID int64
}

// NewTelegram creates a Telegram notifier
func NewTelegram(bot TelegramSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// NewTelegramBot connects to the Bot API with a token
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// Name implements notification.Named
func (t *Telegram) Name() string { return "telegram" }

// Notify implements notification.Notifier
func (t *Telegram) Notify(ctx context.Context, evt *notification.CompletionEvent) error {
	msg := tgbotapi.NewMessage(t.chatID, TelegramText(evt))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// TelegramText formats an event as a plain text message
func TelegramText(evt *notification.CompletionEvent) string {
	var b strings.Builder
	if evt.Succeeded() {
		fmt.Fprintf(&b, "DONE: %s (%d scenes)\n", evt.Symbol, evt.SceneCount)
		if evt.URL != "" {
			b.WriteString(evt.URL)
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "%s\n", evt.Filename)
		}
	} else {
		fmt.Fprintf(&b, "FAILED: %s (%d scenes)\n", evt.Symbol, evt.SceneCount)
		b.WriteString(truncate(evt.Error, 1000))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "job %s", evt.JobID)
	return b.String()
}

var _ notification.Notifier = (*Telegram)(nil)
