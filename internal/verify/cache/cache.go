// Package cache is a Redis read-through cache for by-id verification
// lookups. Cache failures degrade to store reads; they are counted, never
// surfaced.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"attest/internal/certificate/models"
)

const keyPrefix = "attest:certificate:"

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attest_verify_cache_hits_total",
		Help: "Verification cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attest_verify_cache_misses_total",
		Help: "Verification cache misses",
	})
)

type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
	// mintedTTL applies to minted records, which are immutable; pendingTTL
	// keeps not-yet-final records fresh enough to show mint progress.
	mintedTTL  time.Duration
	pendingTTL time.Duration
}

func New(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client:     client,
		logger:     logger,
		mintedTTL:  time.Hour,
		pendingTTL: 30 * time.Second,
	}
}

func (c *RedisCache) Get(ctx context.Context, id string) (models.Certificate, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "verify cache read failed", "certificate_id", id, "error", err)
		}
		cacheMisses.Inc()
		return models.Certificate{}, false
	}
	var certificate models.Certificate
	if err := json.Unmarshal(raw, &certificate); err != nil {
		cacheMisses.Inc()
		return models.Certificate{}, false
	}
	cacheHits.Inc()
	return certificate, true
}

func (c *RedisCache) Put(ctx context.Context, certificate models.Certificate) {
	raw, err := json.Marshal(certificate)
	if err != nil {
		return
	}
	ttl := c.pendingTTL
	if certificate.DeriveStatus() == models.StatusMinted {
		ttl = c.mintedTTL
	}
	if err := c.client.Set(ctx, keyPrefix+certificate.ID, raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "verify cache write failed", "certificate_id", certificate.ID, "error", err)
	}
}
