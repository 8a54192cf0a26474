package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "habitbot/contracts/mq"
	"habitbot/internal/notify"
	"habitbot/pkg/logger"
	"habitbot/pkg/util"
)

const handlerName = "notify"

// DeadLetterPublisher is implemented by *mq.Publisher.
type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// Handler consumes notification.requested events and sends them through sink. It returns an
// error only when the message should be requeued.
type Handler struct {
	sink         notify.Sink
	deduper      *util.Deduper
	retryCounter *util.RetryCounter
	dlq          DeadLetterPublisher
	maxRetries   int64
	logger       *zap.Logger
}

func NewHandler(
	sink notify.Sink,
	deduper *util.Deduper,
	retryCounter *util.RetryCounter,
	dlq DeadLetterPublisher,
	maxRetries int,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sink:         sink,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		maxRetries:   int64(maxRetries),
		logger:       logger,
	}
}

func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.NotificationRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.DeliveryID == "" {
		if err == nil {
			err = fmt.Errorf("missing delivery_id")
		}
		log.Error("Invalid notification payload, sending to DLQ", zap.Error(err))
		h.deadLetter(log, raw, err)
		return nil
	}
	log = log.With(zap.String("delivery_id", p.DeliveryID))

	// Redis 去重
	if !h.deduper.AcquireOnce(ctx, handlerName, p.DeliveryID) {
		log.Info("Duplicate notification skipped")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, p.DeliveryID)
	err := h.sink.Deliver(ctx, fromPayload(p))
	if err == nil {
		_ = h.retryCounter.Reset(ctx, retryKey)
		log.Info("Notification delivered")
		return nil
	}

	retryCount, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cntErr != nil {
		log.Warn("Failed to count retry", zap.Error(cntErr))
	}
	isRetryable, errType := util.IsRetryableError(err)
	log.Warn("Notification delivery failed",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry", retryCount),
		zap.Error(err),
	)

	if !util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
		h.deadLetter(log, raw, err)
		_ = h.retryCounter.Reset(ctx, retryKey)
		return nil // ack
	}

	// 释放去重键，让重新入队的消息能再次处理
	h.deduper.Release(ctx, handlerName, p.DeliveryID)
	return err // nack → 重试
}

func (h *Handler) deadLetter(log *zap.Logger, raw []byte, cause error) {
	if err := h.dlq.PublishToDLQ(RoutingKey, raw, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
