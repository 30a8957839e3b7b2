package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultInvalidationChannel = "billing:plans:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// PlanInvalidation tells other instances to drop a plan from their local tier.
// An empty PlanID means every plan.
type PlanInvalidation struct {
	PlanID    string `json:"plan_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// PlanCacheInvalidator broadcasts plan invalidations over Redis Pub/Sub
type PlanCacheInvalidator struct {
	client    *redis.Client
	channel   string
	logger    *zap.Logger
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	mu        sync.Mutex
	isRunning bool
}

// PlanCacheInvalidatorOption is a functional option for configuring the invalidator
type PlanCacheInvalidatorOption func(*PlanCacheInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) PlanCacheInvalidatorOption {
	return func(i *PlanCacheInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) PlanCacheInvalidatorOption {
	return func(i *PlanCacheInvalidator) {
		i.logger = logger
	}
}

// NewPlanCacheInvalidator creates an invalidator on a shared client.
// The caller keeps ownership of the client.
func NewPlanCacheInvalidator(client *redis.Client, opts ...PlanCacheInvalidatorOption) *PlanCacheInvalidator {
	i := &PlanCacheInvalidator{
		client:  client,
		channel: defaultInvalidationChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish announces that planID changed
func (i *PlanCacheInvalidator) Publish(ctx context.Context, planID string) error {
	data, err := json.Marshal(PlanInvalidation{PlanID: planID, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	i.logger.Debug("Published plan invalidation",
		zap.String("plan_id", planID),
		zap.String("channel", i.channel))
	return nil
}

// Subscribe delivers invalidations to callback until ctx is cancelled or
// Close is called. It blocks; run it in a goroutine.
func (i *PlanCacheInvalidator) Subscribe(ctx context.Context, callback func(PlanInvalidation)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("Subscribed to plan invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Plan invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Plan invalidation channel closed")
				return nil
			}
			var inv PlanInvalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				i.logger.Error("Failed to unmarshal plan invalidation",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			i.dispatch(callback, inv)
		}
	}
}

func (i *PlanCacheInvalidator) dispatch(callback func(PlanInvalidation), inv PlanInvalidation) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in plan invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(inv)
}

func (i *PlanCacheInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops a running subscription and waits for it to exit
func (i *PlanCacheInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn == nil {
		return nil
	}
	cancelFn()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("Timeout waiting for plan invalidation subscription to stop")
	}
	return nil
}
