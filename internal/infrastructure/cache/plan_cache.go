package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const allPlansKey = "*"

// PlanCacheConfig sizes the two tiers
type PlanCacheConfig struct {
	// LocalSize and LocalTTL bound the in-process tier
	LocalSize int
	LocalTTL  time.Duration
	// RemoteTTL is the Redis entry lifetime
	RemoteTTL time.Duration
	KeyPrefix string
}

// DefaultPlanCacheConfig returns the default tier sizes
func DefaultPlanCacheConfig() PlanCacheConfig {
	return PlanCacheConfig{
		LocalSize: 256,
		LocalTTL:  30 * time.Second,
		RemoteTTL: 10 * time.Minute,
		KeyPrefix: "billing:",
	}
}

// PlanCacheStats counts tier hits and misses
type PlanCacheStats struct {
	L1Hits   int64 `json:"l1_hits"`
	L1Misses int64 `json:"l1_misses"`
	L2Hits   int64 `json:"l2_hits"`
	L2Misses int64 `json:"l2_misses"`
}

// TieredPlanCache is a read-through billing.PlanRepository decorator.
// L1 is a local expiring LRU, L2 is Redis shared by every instance.
// Writes go to the wrapped repository and then evict both tiers; other
// instances drop their L1 entry when the invalidation is broadcast.
// Redis failures degrade to reading the repository.
type TieredPlanCache struct {
	repo        billing.PlanRepository
	local       *expirable.LRU[string, []*billing.Plan]
	remote      *redis.Client
	invalidator *PlanCacheInvalidator
	config      PlanCacheConfig
	logger      *zap.Logger

	l1Hits   atomic.Int64
	l1Misses atomic.Int64
	l2Hits   atomic.Int64
	l2Misses atomic.Int64
}

// TieredPlanCacheOption is a functional option for configuring the cache
type TieredPlanCacheOption func(*TieredPlanCache)

// WithPlanCacheConfig sets the tier sizes
func WithPlanCacheConfig(cfg PlanCacheConfig) TieredPlanCacheOption {
	return func(c *TieredPlanCache) {
		c.config = cfg
	}
}

// WithRemote enables the Redis tier
func WithRemote(client *redis.Client) TieredPlanCacheOption {
	return func(c *TieredPlanCache) {
		c.remote = client
	}
}

// WithInvalidator broadcasts writes to other instances
func WithInvalidator(inv *PlanCacheInvalidator) TieredPlanCacheOption {
	return func(c *TieredPlanCache) {
		c.invalidator = inv
	}
}

// WithPlanCacheLogger sets the logger for the cache
func WithPlanCacheLogger(logger *zap.Logger) TieredPlanCacheOption {
	return func(c *TieredPlanCache) {
		c.logger = logger
	}
}

// NewTieredPlanCache wraps repo
func NewTieredPlanCache(repo billing.PlanRepository, opts ...TieredPlanCacheOption) *TieredPlanCache {
	c := &TieredPlanCache{
		repo:   repo,
		config: DefaultPlanCacheConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config.LocalSize <= 0 {
		c.config.LocalSize = DefaultPlanCacheConfig().LocalSize
	}
	c.local = expirable.NewLRU[string, []*billing.Plan](c.config.LocalSize, nil, c.config.LocalTTL)
	return c
}

// FindByID returns a plan, reading L1, then L2, then the repository
func (c *TieredPlanCache) FindByID(ctx context.Context, id string) (*billing.Plan, error) {
	plans, err := c.load(ctx, id, func(ctx context.Context) ([]*billing.Plan, error) {
		plan, err := c.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*billing.Plan{plan}, nil
	})
	if err != nil {
		return nil, err
	}
	return plans[0], nil
}

// FindAll returns every live plan
func (c *TieredPlanCache) FindAll(ctx context.Context) ([]*billing.Plan, error) {
	return c.load(ctx, allPlansKey, c.repo.FindAll)
}

// Create stores the plan and evicts the catalog listing
func (c *TieredPlanCache) Create(ctx context.Context, plan *billing.Plan) error {
	if err := c.repo.Create(ctx, plan); err != nil {
		return err
	}
	c.Invalidate(ctx, plan.ID)
	return nil
}

// Update stores the plan and evicts it
func (c *TieredPlanCache) Update(ctx context.Context, plan *billing.Plan) error {
	if err := c.repo.Update(ctx, plan); err != nil {
		return err
	}
	c.Invalidate(ctx, plan.ID)
	return nil
}

// Delete tombstones the plan and evicts it
func (c *TieredPlanCache) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops planID and the listing from both tiers and tells other
// instances to do the same. Errors are logged; entries expire regardless.
func (c *TieredPlanCache) Invalidate(ctx context.Context, planID string) {
	c.evictLocal(planID)
	if c.remote != nil {
		if err := c.remote.Del(ctx, c.remoteKey(planID), c.remoteKey(allPlansKey)).Err(); err != nil {
			c.logger.Warn("Failed to evict plan from Redis", zap.String("plan_id", planID), zap.Error(err))
		}
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, planID); err != nil {
			c.logger.Warn("Failed to publish plan invalidation", zap.String("plan_id", planID), zap.Error(err))
		}
	}
}

// StartInvalidationSubscription applies invalidations from other instances
// to the local tier. It blocks until ctx is cancelled.
func (c *TieredPlanCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(inv PlanInvalidation) {
		if inv.PlanID == "" {
			c.local.Purge()
			return
		}
		c.evictLocal(inv.PlanID)
	})
}

// Stats returns a snapshot of the hit counters
func (c *TieredPlanCache) Stats() PlanCacheStats {
	return PlanCacheStats{
		L1Hits:   c.l1Hits.Load(),
		L1Misses: c.l1Misses.Load(),
		L2Hits:   c.l2Hits.Load(),
		L2Misses: c.l2Misses.Load(),
	}
}

func (c *TieredPlanCache) evictLocal(planID string) {
	c.local.Remove(planID)
	c.local.Remove(allPlansKey)
}

func (c *TieredPlanCache) remoteKey(key string) string {
	return c.config.KeyPrefix + "plan:" + key
}

// load hands out copies so callers that mutate a plan (admin updates) never
// touch a cached value
func (c *TieredPlanCache) load(ctx context.Context, key string, fetch func(context.Context) ([]*billing.Plan, error)) ([]*billing.Plan, error) {
	if plans, ok := c.local.Get(key); ok {
		c.l1Hits.Add(1)
		return clonePlans(plans), nil
	}
	c.l1Misses.Add(1)

	if plans, ok := c.getRemote(ctx, key); ok {
		c.l2Hits.Add(1)
		c.local.Add(key, plans)
		return clonePlans(plans), nil
	}

	plans, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.local.Add(key, clonePlans(plans))
	c.setRemote(ctx, key, plans)
	return plans, nil
}

func (c *TieredPlanCache) getRemote(ctx context.Context, key string) ([]*billing.Plan, bool) {
	if c.remote == nil {
		return nil, false
	}
	data, err := c.remote.Get(ctx, c.remoteKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.l2Misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Plan cache read failed, using database", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	plans, err := decodePlans(data)
	if err != nil {
		c.logger.Warn("Discarding malformed cached plans", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return plans, true
}

func (c *TieredPlanCache) setRemote(ctx context.Context, key string, plans []*billing.Plan) {
	if c.remote == nil {
		return
	}
	data, err := encodePlans(plans)
	if err != nil {
		c.logger.Warn("Failed to encode plans for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.remote.Set(ctx, c.remoteKey(key), data, c.config.RemoteTTL).Err(); err != nil {
		c.logger.Warn("Plan cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// cachedPlan is the Redis representation of a plan
type cachedPlan struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PriceMinor      int64     `json:"price_minor"`
	Currency        string    `json:"currency"`
	InvoiceLimit    *int      `json:"invoice_limit,omitempty"`
	TeamMemberLimit *int      `json:"team_member_limit,omitempty"`
	Features        []string  `json:"features"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func encodePlans(plans []*billing.Plan) ([]byte, error) {
	out := make([]cachedPlan, len(plans))
	for i, p := range plans {
		out[i] = cachedPlan{
			ID:              p.ID,
			Name:            p.Name,
			PriceMinor:      p.PriceMinor,
			Currency:        p.Currency.String(),
			InvoiceLimit:    p.InvoiceLimit,
			TeamMemberLimit: p.TeamMemberLimit,
			Features:        p.Features.Strings(),
			SortOrder:       p.SortOrder,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		}
	}
	return json.Marshal(out)
}

func decodePlans(data []byte) ([]*billing.Plan, error) {
	var in []cachedPlan
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("empty plan entry")
	}
	plans := make([]*billing.Plan, len(in))
	for i, cp := range in {
		features, err := billing.ParseFeatureSet(cp.Features)
		if err != nil {
			return nil, err
		}
		plans[i] = &billing.Plan{
			ID:              cp.ID,
			Name:            cp.Name,
			PriceMinor:      cp.PriceMinor,
			Currency:        valueobject.Currency(cp.Currency),
			InvoiceLimit:    cp.InvoiceLimit,
			TeamMemberLimit: cp.TeamMemberLimit,
			Features:        features,
			SortOrder:       cp.SortOrder,
			CreatedAt:       cp.CreatedAt,
			UpdatedAt:       cp.UpdatedAt,
		}
	}
	return plans, nil
}

func clonePlans(plans []*billing.Plan) []*billing.Plan {
	out := make([]*billing.Plan, len(plans))
	for i, p := range plans {
		cp := *p
		if p.InvoiceLimit != nil {
			cp.InvoiceLimit = billing.IntPtr(*p.InvoiceLimit)
		}
		if p.TeamMemberLimit != nil {
			cp.TeamMemberLimit = billing.IntPtr(*p.TeamMemberLimit)
		}
		cp.Features = billing.NewFeatureSet(p.Features.List()...)
		out[i] = &cp
	}
	return out
}

var _ billing.PlanRepository = (*TieredPlanCache)(nil)
