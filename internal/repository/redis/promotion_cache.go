package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/internal/repository"
)

const activePromotionsKey = "promotions:active"

// PromotionCache wraps a catalog with a short-lived Redis copy of the active
// promotions, shared by every instance in the store. Cache failures fall
// through to the wrapped catalog.
type PromotionCache struct {
	next   repository.PromotionRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewPromotionCache caches next's active list for ttl.
func NewPromotionCache(next repository.PromotionRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *PromotionCache {
	return &PromotionCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// ListActive serves the cached active list, refreshing it on a miss.
func (c *PromotionCache) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	data, err := c.client.Get(ctx, activePromotionsKey).Bytes()
	switch {
	case err == nil:
		var promotions []domain.Promotion
		if err := json.Unmarshal(data, &promotions); err == nil {
			return promotions, nil
		}
		c.logger.WarnContext(ctx, "discarding unreadable promotions cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "promotions cache read failed",
			slog.String("error", err.Error()),
		)
	}

	promotions, err := c.next.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(promotions); err == nil {
		if err := c.client.Set(ctx, activePromotionsKey, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "promotions cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return promotions, nil
}

// GetByID is not cached.
func (c *PromotionCache) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	return c.next.GetByID(ctx, id)
}

// Invalidate drops the cached list.
func (c *PromotionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activePromotionsKey).Err()
}
