package service

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "market:pricing"
	defaultCacheTTL = time.Hour
	negativeEntry   = "null"
)

// PricingCache is a read-through Redis cache in front of the stats table.
// Insufficient-data answers are cached too, as a JSON null.
type PricingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPricingCache connects to Redis. A blank REDIS_URL disables the cache
// and returns (nil, nil); every method tolerates a nil receiver.
func NewPricingCache(ctx context.Context, cfg config.CacheConfig) (*PricingCache, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewPricingCacheWithClient(client, cfg.GetMarketCacheTTL()), nil
}

// NewPricingCacheWithClient wraps an existing client.
func NewPricingCacheWithClient(client *redis.Client, ttl time.Duration) *PricingCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &PricingCache{client: client, ttl: ttl}
}

func (c *PricingCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the cached answer and whether there was one. A hit may carry a
// nil stats value, meaning "known insufficient".
func (c *PricingCache) Get(ctx context.Context, city, state string, eventType domain.EventType) (*domain.CityEventStats, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, cacheKey(city, state, eventType)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == negativeEntry {
		return nil, true, nil
	}

	var stats domain.CityEventStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, false, fmt.Errorf("decode cached pricing: %w", err)
	}
	return &stats, true, nil
}

func (c *PricingCache) Set(ctx context.Context, city, state string, eventType domain.EventType, stats *domain.CityEventStats) error {
	if c == nil {
		return nil
	}
	payload := []byte(negativeEntry)
	if stats != nil {
		var err error
		if payload, err = json.Marshal(stats); err != nil {
			return err
		}
	}
	return c.client.Set(ctx, cacheKey(city, state, eventType), payload, c.ttl).Err()
}

// Invalidate drops every cached state variant for the city and event type.
func (c *PricingCache) Invalidate(ctx context.Context, city, state string, eventType domain.EventType) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(city, state, eventType), cacheKey(city, "", eventType)).Err()
}

func cacheKey(city, state string, eventType domain.EventType) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return fmt.Sprintf("%s:%s:%s:%s", cacheKeyPrefix, norm(city), norm(state), eventType)
}
