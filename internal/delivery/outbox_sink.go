package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "habitbot/contracts/mq"
	"habitbot/internal/notify"
	"habitbot/pkg/logger"
	"habitbot/pkg/metrics"
	"habitbot/pkg/outbox"
	"habitbot/pkg/trace"
)

const (
	RoutingKey    = mqcontracts.RoutingNotificationRequested
	aggregateType = "notification"
)

func toPayload(msg notify.Message) mqcontracts.NotificationRequestedPayload {
	p := mqcontracts.NotificationRequestedPayload{Text: msg.Text}
	for _, row := range msg.Keyboard {
		buttons := make([]mqcontracts.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, mqcontracts.InlineButton{Text: b.Text, Data: b.Data})
		}
		p.Keyboard = append(p.Keyboard, buttons)
	}
	return p
}

func fromPayload(p mqcontracts.NotificationRequestedPayload) notify.Message {
	msg := notify.Message{Text: p.Text}
	for _, row := range p.Keyboard {
		buttons := make([]notify.Button, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, notify.Button{Text: b.Text, Data: b.Data})
		}
		msg.Keyboard = append(msg.Keyboard, buttons)
	}
	return msg
}

// OutboxSink records messages in the outbox table; the dispatcher publishes them later.
type OutboxSink struct {
	pool   *pgxpool.Pool
	repo   *outbox.Repository
	logger *zap.Logger
}

func NewOutboxSink(pool *pgxpool.Pool, repo *outbox.Repository, logger *zap.Logger) *OutboxSink {
	return &OutboxSink{pool: pool, repo: repo, logger: logger}
}

func (s *OutboxSink) Deliver(ctx context.Context, msg notify.Message) error {
	ctx = trace.Ensure(ctx)
	payload := toPayload(msg)
	payload.DeliveryID = uuid.NewString()
	payload.TraceID = trace.FromContext(ctx)
	payload.RequestedAt = time.Now().UTC()

	var eventID int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		event, err := outbox.InsertEventInTx(ctx, tx, s.repo, aggregateType, nil, RoutingKey, payload)
		if err != nil {
			return err
		}
		eventID = event.ID
		return nil
	})
	if err != nil {
		metrics.IncrementDelivered("outbox", "failed")
		return fmt.Errorf("enqueue notification: %w", err)
	}

	metrics.IncrementDelivered("outbox", "success")
	logger.WithTrace(ctx, s.logger).Info("Notification queued",
		zap.String("delivery_id", payload.DeliveryID),
		zap.Int64("event_id", eventID),
	)
	return nil
}
