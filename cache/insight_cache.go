package cache

import (
	"context"
	"fmt"
	"time"
)

// Insight payloads are cheap to recompute but hit the readings table hard on
// dashboard refreshes; a short TTL takes the edge off without staleness
// anyone would notice.
const insightTTL = 2 * time.Minute

// InsightCache is a best-effort response cache for computed analytics
// payloads. All methods tolerate a nil client.
type InsightCache struct {
	redis *RedisClient
}

// NewInsightCache creates an insight cache; redis may be nil
func NewInsightCache(redis *RedisClient) *InsightCache {
	return &InsightCache{redis: redis}
}

func insightKey(siteID string, windowHours, lookbackDays int) string {
	return fmt.Sprintf("insights:%s:%d:%d", siteID, windowHours, lookbackDays)
}

func sitePattern(siteID string) string {
	return fmt.Sprintf("insights:%s:*", siteID)
}

// GetInsights loads a cached insight payload into dest. Returns false on
// miss or any cache failure.
func (c *InsightCache) GetInsights(ctx context.Context, siteID string, windowHours, lookbackDays int, dest interface{}) bool {
	if c == nil || c.redis == nil {
		return false
	}
	if err := c.redis.Get(ctx, insightKey(siteID, windowHours, lookbackDays), dest); err != nil {
		return false
	}
	return true
}

// SetInsights stores an insight payload, best-effort
func (c *InsightCache) SetInsights(ctx context.Context, siteID string, windowHours, lookbackDays int, payload interface{}) {
	if c == nil || c.redis == nil {
		return
	}
	// Cache failures are invisible to callers
	_ = c.redis.Set(ctx, insightKey(siteID, windowHours, lookbackDays), payload, insightTTL)
}

// InvalidateSite drops every cached payload for a site after new data
// arrives, whatever window/lookback combination it was computed for.
func (c *InsightCache) InvalidateSite(ctx context.Context, siteID string) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.DeleteByPattern(ctx, sitePattern(siteID))
}
