// Package notify delivers service up/down transitions to operators.
package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"service-dashboard/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Notifier sends a text message somewhere a human will see it
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message. Used when no channel is configured.
type Nop struct{}

// Notify implements Notifier
func (Nop) Notify(context.Context, string) error { return nil }

// TelegramNotifier posts messages to a single Telegram chat
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects to the Bot API with token
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, chatID, tgbotapi.APIEndpoint, &http.Client{})
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom API endpoint.
// endpoint follows tgbotapi.APIEndpoint and takes the token and method name.
func NewTelegramNotifierWithEndpoint(token string, chatID int64, endpoint string, client *http.Client) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("Telegram notifications enabled")

	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify sends text as an HTML formatted message
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatTransition renders the message sent when a service changes state
func FormatTransition(st models.Status) string {
	name := html.EscapeString(st.Name)
	url := html.EscapeString(st.URL)

	if st.Up {
		return fmt.Sprintf("✅ <b>%s</b> is back up\n%s (HTTP %d)", name, url, st.StatusCode)
	}

	reason := st.Error
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", st.StatusCode)
	}
	return fmt.Sprintf("❌ <b>%s</b> is down\n%s\n<i>%s</i>", name, url, html.EscapeString(reason))
}
