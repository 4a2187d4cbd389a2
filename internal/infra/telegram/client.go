// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/telebot.v3"
)

// messageSender is the part of *telebot.Bot the alerter needs.
type messageSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// OpsAlerter posts operational alerts to one Telegram chat. It only sends, so the
// bot is created offline and never polls for updates.
type OpsAlerter struct {
	bot    messageSender
	chatID int64
}

// sendTimeout bounds a single Bot API call.
const sendTimeout = 5 * time.Second

// NewOpsAlerter builds an alerter for chatID using the bot token.
func NewOpsAlerter(token string, chatID int64) (*OpsAlerter, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: sendTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return newOpsAlerter(bot, chatID), nil
}

func newOpsAlerter(bot messageSender, chatID int64) *OpsAlerter {
	return &OpsAlerter{bot: bot, chatID: chatID}
}

// Alert sends text to the ops chat. telebot has no context support, so the send
// runs in its own goroutine and Alert returns as soon as ctx ends.
func (a *OpsAlerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.Chat{ID: a.chatID}
	done := make(chan error, 1)
	go func() {
		_, err := a.bot.Send(recipient, text, &telebot.SendOptions{DisableWebPagePreview: true})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending ops alert to chat %d: %w", a.chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ops alert to chat %d abandoned: %w", a.chatID, ctx.Err())
	}
}
