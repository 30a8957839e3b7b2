package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", "agg-1", "user-1")}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	typed := newTestHandler("a")
	other := newTestHandler("b")
	wildcard := newTestHandler()
	bus.Subscribe(typed)
	bus.Subscribe(other)
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a"), newTestEvent("a")))

	assert.Equal(t, 2, typed.count())
	assert.Zero(t, other.count())
	assert.Equal(t, 2, wildcard.count())
	assert.Equal(t, int64(4), bus.Stats().Delivered)
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	failing := newTestHandler("a")
	failing.err = errors.New("boom")
	panicking := newTestHandler("a")
	panicking.panicMsg = "kaboom"
	healthy := newTestHandler("a")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a")))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, BusStats{Delivered: 1, Failed: 2}, bus.Stats())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler("a")
	bus.Subscribe(h)
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a")))
	assert.Equal(t, 1, h.count(), "duplicate subscriptions are ignored")

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	ctx := context.Background()
	h := newTestHandler("a")
	bus.Subscribe(h)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("a")))

	require.NoError(t, bus.Stop(ctx))
	assert.Error(t, bus.Publish(ctx, newTestEvent("a")))
	assert.Equal(t, 1, h.count())

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("a")))
}
