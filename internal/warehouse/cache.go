package warehouse

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type cacheEntry struct {
	rows      []RawRow
	fetchedAt time.Time
}

// CachedSource memoizes a Source's result for a fixed TTL, keyed by
// (query, connection identity). Concurrent misses may both query the
// underlying source; the query has no side effects so the last write wins.
// A TTL of zero disables caching.
type CachedSource struct {
	src    Source
	ttl    time.Duration
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCachedSource wraps src.
func NewCachedSource(src Source, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleanup := ttl * 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &CachedSource{
		src:    src,
		ttl:    ttl,
		cache:  cache.New(ttl, cleanup),
		logger: logger.Named("cache"),
	}
}

// Key returns the cache key for the wrapped source.
func (c *CachedSource) Key() string {
	sum := sha1.Sum([]byte(ReviewsWithShippingQuery))
	return hex.EncodeToString(sum[:8]) + "|" + c.src.Identity()
}

// TTL returns the configured time-to-live.
func (c *CachedSource) TTL() time.Duration { return c.ttl }

// Identity implements Source.
func (c *CachedSource) Identity() string { return c.src.Identity() }

// FetchReviewsWithShipping implements Source. Errors are never cached and a
// failed load never falls back to a previous result.
func (c *CachedSource) FetchReviewsWithShipping(ctx context.Context) ([]RawRow, error) {
	rows, _, err := c.Fetch(ctx)
	return rows, err
}

// Fetch returns the rows plus the time they were loaded from the source.
func (c *CachedSource) Fetch(ctx context.Context) ([]RawRow, time.Time, error) {
	key := c.Key()
	if c.ttl > 0 {
		if v, ok := c.cache.Get(key); ok {
			e := v.(cacheEntry)
			c.logger.Debug("cache hit", zap.String("key", key), zap.Time("fetched_at", e.fetchedAt))
			return e.rows, e.fetchedAt, nil
		}
	}
	start := time.Now()
	rows, err := c.src.FetchReviewsWithShipping(ctx)
	if err != nil {
		c.logger.Warn("source fetch failed", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, err
	}
	c.logger.Info("source fetched",
		zap.String("key", key),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(start)))
	if c.ttl > 0 {
		c.cache.Set(key, cacheEntry{rows: rows, fetchedAt: start}, c.ttl)
	}
	return rows, start, nil
}

// Invalidate drops the cached result so the next fetch hits the source.
func (c *CachedSource) Invalidate() {
	c.cache.Delete(c.Key())
	c.logger.Info("cache invalidated", zap.String("key", c.Key()))
}

// Flush drops every cached entry.
func (c *CachedSource) Flush() { c.cache.Flush() }

// Source returns the wrapped source.
func (c *CachedSource) Source() Source { return c.src }

// Close flushes the cache and closes the wrapped source when it holds a
// connection.
func (c *CachedSource) Close() error {
	c.cache.Flush()
	if cl, ok := c.src.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
