package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"habitbot/internal/notify"
	"habitbot/pkg/logger"
	"habitbot/pkg/metrics"
	"habitbot/pkg/trace"
)

// API is the part of *tgbotapi.BotAPI the poller uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Poller long-polls Telegram and feeds updates from the owner's chat to the handler.
type Poller struct {
	api         API
	handler     *Handler
	replies     notify.Sink
	chatID      int64
	pollTimeout int
	logger      *zap.Logger
}

// NewPoller creates a poller. Replies go through replies, which must target chatID.
func NewPoller(api API, handler *Handler, replies notify.Sink, chatID int64, pollTimeout int, logger *zap.Logger) *Poller {
	return &Poller{
		api:         api,
		handler:     handler,
		replies:     replies,
		chatID:      chatID,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled. Updates are handled one at a time, in order.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.pollTimeout
	updates := p.api.GetUpdatesChan(cfg)

	p.logger.Info("Bot polling started", zap.Int64("chat_id", p.chatID))
	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logger.Info("Bot polling stopped")
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			p.process(trace.Ensure(ctx), u)
		}
	}
}

func toUpdate(u tgbotapi.Update) (Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		out := Update{Callback: &Callback{ID: cq.ID, Data: cq.Data}}
		if cq.Message != nil {
			out.Callback.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				out.ChatID = cq.Message.Chat.ID
			}
		}
		return out, true
	case u.Message != nil && u.Message.Chat != nil:
		return Update{ChatID: u.Message.Chat.ID, Text: u.Message.Text}, true
	}
	return Update{}, false
}

func (p *Poller) process(ctx context.Context, raw tgbotapi.Update) {
	log := logger.WithTrace(ctx, p.logger)

	u, ok := toUpdate(raw)
	if !ok {
		return
	}
	if u.ChatID != p.chatID {
		metrics.IncrementBotUpdate("ignored")
		log.Warn("Ignoring update from unknown chat", zap.Int64("chat_id", u.ChatID))
		if u.Callback != nil {
			p.answer(ctx, u.Callback.ID, &Answer{})
		}
		return
	}

	reply := p.handler.Handle(ctx, u)

	if u.Callback != nil {
		p.answer(ctx, u.Callback.ID, reply.Answer)
		if reply.ClearKeyboard && u.Callback.MessageID != 0 {
			empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
			edit := tgbotapi.NewEditMessageReplyMarkup(u.ChatID, u.Callback.MessageID, empty)
			if _, err := p.api.Request(edit); err != nil {
				log.Warn("Failed to clear keyboard", zap.Error(err))
			}
		}
	}

	for _, msg := range reply.Messages {
		if err := p.replies.Deliver(ctx, msg); err != nil {
			log.Error("Failed to send reply", zap.Error(err))
		}
	}
}

func (p *Poller) answer(ctx context.Context, callbackID string, a *Answer) {
	if a == nil {
		a = &Answer{}
	}
	cfg := tgbotapi.NewCallback(callbackID, a.Text)
	if a.Alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, a.Text)
	}
	if _, err := p.api.Request(cfg); err != nil {
		logger.WithTrace(ctx, p.logger).Warn("Failed to answer callback", zap.String("callback_id", callbackID), zap.Error(err))
	}
}
