package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// maxMessageLen is Telegram's limit for a single text message, in
	// characters.
	maxMessageLen = 4096

	sendTimeout = 10 * time.Second
)

type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegramAlerter(token string, chatID int64, logger *slog.Logger) (*TelegramAlerter, error) {
	client := &http.Client{Timeout: sendTimeout}
	return NewTelegramAlerterWithEndpoint(token, tgbotapi.APIEndpoint, client, chatID, logger)
}

// NewTelegramAlerterWithEndpoint talks to a custom Bot API endpoint, which
// must contain two %s verbs for the token and the method.
func NewTelegramAlerterWithEndpoint(token, endpoint string, client *http.Client, chatID int64, logger *slog.Logger) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram alerts enabled", "bot", bot.Self.UserName, "chat_id", chatID)

	return &TelegramAlerter{bot: bot, chatID: chatID, logger: logger}, nil
}

// Alert sends text to the alert chat. It returns when the message is sent or
// ctx is done, whichever comes first; an unfinished send keeps going in the
// background, bounded by the HTTP client's timeout.
func (a *TelegramAlerter) Alert(ctx context.Context, text string) {
	msg := tgbotapi.NewMessage(a.chatID, truncate(text, maxMessageLen))
	msg.DisableWebPagePreview = true

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := a.bot.Send(msg); err != nil {
			a.logger.Error("failed to send telegram alert", "error", err, "text", msg.Text)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.WarnContext(ctx, "telegram alert still sending after caller deadline", "text", msg.Text)
	}
}

// truncate shortens text to at most limit characters, marking the cut with
// an ellipsis.
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-3]) + "..."
}
