// Package cache holds the process-wide permission cache. It is a read-through
// map from (plan, permission code) to the resolved plan permission: a miss
// loads from the repository and populates the entry, a hit answers without a
// round trip. Invalidation is explicit, driven by plan administration, and
// fans out to sibling processes over a Redis channel when one is configured.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/plan/domain"
	"github.com/propfolio/backend/pkg/telemetry"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const invalidationChannel = "propfolio:plan-permissions:invalidate"

const invalidateAllToken = "*"

type cacheKey struct {
	planID snowflake.ID
	code   string
}

type cacheEntry struct {
	// perm is nil when the plan has no row for the code; the absence is
	// cached too so repeated denied checks stay off the database.
	perm *domain.PlanPermission
}

// PermissionCache lives for the process lifetime and is safe for concurrent
// use without external synchronization.
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	loader  domain.PermissionLoader
	log     *zap.Logger
	metrics *telemetry.Metrics
	rdb     *redis.Client
}

func NewPermissionCache(loader domain.PermissionLoader, log *zap.Logger, metrics *telemetry.Metrics, rdb *redis.Client) *PermissionCache {
	return &PermissionCache{
		entries: make(map[cacheKey]cacheEntry),
		loader:  loader,
		log:     log.Named("plan.cache"),
		metrics: metrics,
		rdb:     rdb,
	}
}

// Get resolves the permission for (planID, code). The returned permission is
// nil when the plan carries no value for the code.
func (c *PermissionCache) Get(ctx context.Context, planID snowflake.ID, code string) (*domain.PlanPermission, error) {
	key := cacheKey{planID: planID, code: code}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.PermissionCacheHit()
		return entry.perm, nil
	}

	c.metrics.PermissionCacheMiss()
	perm, err := c.loader.FindPermission(ctx, planID, code)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{perm: perm}
	c.mu.Unlock()
	return perm, nil
}

// Invalidate drops every cached entry for the plan and broadcasts the
// invalidation to sibling processes.
func (c *PermissionCache) Invalidate(ctx context.Context, planID snowflake.ID) {
	c.dropPlan(planID)
	c.publish(ctx, planID.String())
}

// InvalidateAll empties the cache and broadcasts.
func (c *PermissionCache) InvalidateAll(ctx context.Context) {
	c.dropAll()
	c.publish(ctx, invalidateAllToken)
}

// Len reports the number of cached entries.
func (c *PermissionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *PermissionCache) dropPlan(planID snowflake.ID) {
	c.mu.Lock()
	for key := range c.entries {
		if key.planID == planID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *PermissionCache) dropAll() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

func (c *PermissionCache) publish(ctx context.Context, payload string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Publish(ctx, invalidationChannel, payload).Err(); err != nil {
		c.log.Warn("failed to broadcast permission invalidation", zap.Error(err))
	}
}

// Listen consumes invalidation broadcasts until ctx is canceled. Messages
// published by this process are harmless to re-apply locally.
func (c *PermissionCache) Listen(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	sub := c.rdb.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.apply(msg.Payload)
		}
	}
}

func (c *PermissionCache) apply(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == invalidateAllToken {
		c.dropAll()
		return
	}
	raw, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.log.Warn("ignoring malformed invalidation payload", zap.String("payload", payload))
		return
	}
	c.dropPlan(snowflake.ID(raw))
}
