// Package delivery moves formatted messages to Telegram, either directly or through the
// outbox and RabbitMQ.
package delivery

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"habitbot/internal/notify"
	"habitbot/pkg/circuitbreaker"
	"habitbot/pkg/logger"
	"habitbot/pkg/metrics"
)

// Sender is the part of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// APIError is a Telegram error response with its HTTP-like status code.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

func (e *APIError) HTTPStatus() int { return e.Code }

func wrapTelegramError(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return &APIError{Code: tgErr.Code, Description: tgErr.Message, RetryAfter: tgErr.RetryAfter}
	}
	return err
}

// InlineKeyboard converts button rows to Telegram markup.
func InlineKeyboard(rows [][]notify.Button) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markup = append(markup, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}

// NewMessageConfig builds an HTML message for chatID with msg's keyboard, if any.
func NewMessageConfig(chatID int64, msg notify.Message) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	cfg.ParseMode = tgbotapi.ModeHTML
	if len(msg.Keyboard) > 0 {
		cfg.ReplyMarkup = InlineKeyboard(msg.Keyboard)
	}
	return cfg
}

// TelegramSink sends messages straight to the configured chat behind a circuit breaker.
type TelegramSink struct {
	api     Sender
	chatID  int64
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewTelegramSink(api Sender, chatID int64, logger *zap.Logger) *TelegramSink {
	cfg := circuitbreaker.DefaultConfig()
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Telegram circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &TelegramSink{
		api:     api,
		chatID:  chatID,
		breaker: circuitbreaker.NewCircuitBreaker(cfg),
		logger:  logger,
	}
}

func (s *TelegramSink) Deliver(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.breaker.Execute(func() error {
		_, err := s.api.Send(NewMessageConfig(s.chatID, msg))
		return wrapTelegramError(err)
	})
	if err != nil {
		metrics.IncrementDelivered("telegram", "failed")
		logger.WithTrace(ctx, s.logger).Error("Failed to send Telegram message",
			zap.Int64("chat_id", s.chatID),
			zap.Error(err),
		)
		return err
	}

	metrics.IncrementDelivered("telegram", "success")
	return nil
}
