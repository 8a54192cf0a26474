package delivery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "habitbot/contracts/mq"
	"habitbot/internal/notify"
	"habitbot/internal/testutil/pgtest"
	"habitbot/pkg/outbox"
	"habitbot/pkg/trace"
)

func TestOutboxSinkQueuesMessage(t *testing.T) {
	pool := pgtest.Start(t)
	repo := outbox.NewRepository(pool)
	sink := NewOutboxSink(pool, repo, zap.NewNop())

	ctx := trace.WithContext(context.Background(), "trace-123")
	msg := notify.Message{Text: "⏰ reminder", Keyboard: [][]notify.Button{{{Text: "Done", Data: "done:1"}}}}
	require.NoError(t, sink.Deliver(ctx, msg))
	require.NoError(t, sink.Deliver(context.Background(), msg))

	events, err := repo.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, RoutingKey, events[0].RoutingKey)

	var first, second mqcontracts.NotificationRequestedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &first))
	require.NoError(t, json.Unmarshal(events[1].Payload, &second))
	assert.Equal(t, "trace-123", first.TraceID)
	assert.Equal(t, msg, fromPayload(first))
	assert.NotEmpty(t, second.TraceID)
	assert.NotEqual(t, first.DeliveryID, second.DeliveryID)
}
