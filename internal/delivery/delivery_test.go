package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "habitbot/contracts/mq"
	"habitbot/internal/notify"
	"habitbot/pkg/circuitbreaker"
	"habitbot/pkg/util"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegramSinkDeliver(t *testing.T) {
	api := &fakeSender{}
	sink := NewTelegramSink(api, 777, zap.NewNop())

	msg := notify.Message{Text: "<b>hi</b>", Keyboard: [][]notify.Button{{{Text: "Done", Data: "done:1"}}}}
	require.NoError(t, sink.Deliver(context.Background(), msg))

	require.Len(t, api.sent, 1)
	sent := api.sent[0]
	assert.Equal(t, int64(777), sent.ChatID)
	assert.Equal(t, "<b>hi</b>", sent.Text)
	assert.Equal(t, tgbotapi.ModeHTML, sent.ParseMode)
	markup, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "done:1", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestTelegramSinkWithoutKeyboard(t *testing.T) {
	api := &fakeSender{}
	require.NoError(t, NewTelegramSink(api, 1, zap.NewNop()).Deliver(context.Background(), notify.Message{Text: "x"}))
	assert.Nil(t, api.sent[0].ReplyMarkup)
}

func TestTelegramSinkWrapsAPIErrors(t *testing.T) {
	api := &fakeSender{err: &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3},
	}}
	sink := NewTelegramSink(api, 1, zap.NewNop())

	err := sink.Deliver(context.Background(), notify.Message{Text: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.HTTPStatus())
	assert.Equal(t, 3, apiErr.RetryAfter)

	retryable, kind := util.IsRetryableError(err)
	assert.True(t, retryable)
	assert.Equal(t, "rate_limited", kind)

	api.err = &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	retryable, _ = util.IsRetryableError(sink.Deliver(context.Background(), notify.Message{Text: "x"}))
	assert.False(t, retryable)
}

func TestTelegramSinkCircuitBreaker(t *testing.T) {
	api := &fakeSender{err: errors.New("connection reset")}
	sink := NewTelegramSink(api, 1, zap.NewNop())

	for i := 0; i < circuitbreaker.DefaultConfig().FailureThreshold; i++ {
		assert.Error(t, sink.Deliver(context.Background(), notify.Message{Text: "x"}))
	}
	api.err = nil
	err := sink.Deliver(context.Background(), notify.Message{Text: "x"})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Empty(t, api.sent)
}

type fakeDLQ struct {
	mu     sync.Mutex
	bodies [][]byte
	causes []string
}

func (f *fakeDLQ) PublishToDLQ(_ string, payload []byte, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, payload)
	f.causes = append(f.causes, cause)
	return nil
}

type scriptedSink struct {
	errs  []error
	calls int
}

func (s *scriptedSink) Deliver(context.Context, notify.Message) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func newHandler(t *testing.T, sink notify.Sink, maxRetries int) (*Handler, *fakeDLQ) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	dlq := &fakeDLQ{}
	h := NewHandler(sink,
		util.NewDeduper(rdb, time.Hour, zap.NewNop()),
		util.NewRetryCounter(rdb, time.Hour),
		dlq, maxRetries, zap.NewNop(),
	)
	return h, dlq
}

func payload(t *testing.T, id string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.NotificationRequestedPayload{DeliveryID: id, Text: "hi"})
	require.NoError(t, err)
	return raw
}

func TestHandlerDeliversOnce(t *testing.T) {
	sink := &scriptedSink{}
	h, dlq := newHandler(t, sink, 3)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, payload(t, "d-1")))
	require.NoError(t, h.Handle(ctx, payload(t, "d-1")))
	assert.Equal(t, 1, sink.calls)
	assert.Empty(t, dlq.bodies)
}

func TestHandlerRetriesThenDeadLetters(t *testing.T) {
	transient := &APIError{Code: 502, Description: "Bad Gateway"}
	sink := &scriptedSink{errs: []error{transient, transient, transient}}
	h, dlq := newHandler(t, sink, 2)
	ctx := context.Background()
	raw := payload(t, "d-2")

	assert.Error(t, h.Handle(ctx, raw))
	assert.Error(t, h.Handle(ctx, raw))
	// third failure exceeds max retries
	assert.NoError(t, h.Handle(ctx, raw))

	assert.Equal(t, 3, sink.calls)
	require.Len(t, dlq.bodies, 1)
	assert.JSONEq(t, string(raw), string(dlq.bodies[0]))
}

func TestHandlerRecoversAfterTransientFailure(t *testing.T) {
	sink := &scriptedSink{errs: []error{&APIError{Code: 500}}}
	h, dlq := newHandler(t, sink, 3)
	ctx := context.Background()
	raw := payload(t, "d-3")

	assert.Error(t, h.Handle(ctx, raw))
	assert.NoError(t, h.Handle(ctx, raw))
	assert.Equal(t, 2, sink.calls)
	assert.Empty(t, dlq.bodies)
}

func TestHandlerNonRetryableGoesToDLQ(t *testing.T) {
	sink := &scriptedSink{errs: []error{&APIError{Code: 403, Description: "Forbidden: bot was blocked by the user"}}}
	h, dlq := newHandler(t, sink, 5)

	assert.NoError(t, h.Handle(context.Background(), payload(t, "d-4")))
	require.Len(t, dlq.causes, 1)
	assert.Contains(t, dlq.causes[0], "403")
}

func TestHandlerInvalidPayload(t *testing.T) {
	sink := &scriptedSink{}
	h, dlq := newHandler(t, sink, 5)

	assert.NoError(t, h.Handle(context.Background(), json.RawMessage(`{broken`)))
	assert.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"message":{"text":"x"}}`)))
	assert.Len(t, dlq.bodies, 2)
	assert.Equal(t, 0, sink.calls)
}
