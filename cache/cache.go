// Package cache provides a Redis-backed result cache for analysis responses
// and a short-lived cache for API-key lookups. The cache is an optimization
// only: when Redis is unreachable every operation degrades to a miss and the
// pipeline computes results as usual.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"

	"crop-analyze-pipeline/metrics"
)

const (
	// DefaultResultTTL is how long computed analysis results stay cached.
	DefaultResultTTL = time.Hour
	// APIKeyTTL is how long API-key lookups stay cached.
	APIKeyTTL = 5 * time.Minute
)

// Cache wraps a Redis client. A nil *Cache or a Cache around a nil client is
// valid and behaves as a permanent miss.
type Cache struct {
	client    *redis.Client
	resultTTL time.Duration
}

// New connects to Redis and verifies the connection. A failed ping returns a
// usable Cache anyway; the error is for the caller to log.
func New(addr, password string, db int, resultTTL time.Duration) (*Cache, error) {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	c := &Cache{client: client, resultTTL: resultTTL}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return c, fmt.Errorf("redis ping failed: %w", err)
	}
	return c, nil
}

// ResultKey builds the cache key for an analysis result: the partner id plus
// an md5 digest of the image bytes.
func ResultKey(kind, partner string, image []byte) string {
	sum := md5.Sum(image)
	return fmt.Sprintf("%s:%s:%s", kind, partner, hex.EncodeToString(sum[:]))
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetResult loads a cached result into out. The boolean reports a hit.
func (c *Cache) GetResult(ctx context.Context, key string, out interface{}) bool {
	if !c.enabled() {
		metrics.CacheOpsTotal.WithLabelValues("skip").Inc()
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheOpsTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		metrics.CacheOpsTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		metrics.CacheOpsTotal.WithLabelValues("error").Inc()
		log.WithError(err).WithField("key", key).Warn("cache payload corrupt, treating as miss")
		return false
	}
	metrics.CacheOpsTotal.WithLabelValues("hit").Inc()
	return true
}

// SetResult stores a computed result. Failures are logged, never returned.
func (c *Cache) SetResult(ctx context.Context, key string, value interface{}) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.resultTTL).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// GetAPIKey loads a cached API-key record into out.
func (c *Cache) GetAPIKey(ctx context.Context, key string, out interface{}) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, "apikey:"+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// SetAPIKey caches an API-key record for APIKeyTTL.
func (c *Cache) SetAPIKey(ctx context.Context, key string, value interface{}) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "apikey:"+key, raw, APIKeyTTL).Err(); err != nil {
		log.WithError(err).Warn("api key cache write failed")
	}
}

// InvalidateAPIKey drops a cached API-key record, for revocations.
func (c *Cache) InvalidateAPIKey(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, "apikey:"+key).Err(); err != nil {
		log.WithError(err).Warn("api key cache invalidation failed")
	}
}

// Healthy reports whether Redis currently answers pings.
func (c *Cache) Healthy(ctx context.Context) bool {
	if !c.enabled() {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
