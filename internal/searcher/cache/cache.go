// Package cache is a Redis-backed result cache for search queries, with
// singleflight deduplication so concurrent identical queries hit the index
// only once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/forumbase/postsearch/internal/searcher"
	"github.com/forumbase/postsearch/pkg/config"
	"github.com/forumbase/postsearch/pkg/logger"
	"github.com/forumbase/postsearch/pkg/metrics"
	pkgredis "github.com/forumbase/postsearch/pkg/redis"
)

const keyPrefix = "search:"

// QueryCache caches ResultSets keyed by query, field set, and limit.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a QueryCache over the given Redis client. m may be nil to
// disable metrics.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}
}

// Get returns the cached result for the key parameters, if present.
func (c *QueryCache) Get(ctx context.Context, query string, fields []string, limit int) (*searcher.ResultSet, bool) {
	key := c.buildKey(query, fields, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.countMiss()
		return nil, false
	}
	var result searcher.ResultSet
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.countMiss()
		return nil, false
	}
	c.countHit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

// Set stores a result with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, query string, fields []string, limit int, result *searcher.ResultSet) {
	key := c.buildKey(query, fields, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes, caches, and returns a
// fresh one. Concurrent callers with the same key share one computation.
// The bool reports whether the result came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	fields []string,
	limit int,
	computeFn func() (*searcher.ResultSet, error),
) (*searcher.ResultSet, bool, error) {
	if result, ok := c.Get(ctx, query, fields, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(query, fields, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, query, fields, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, fields, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*searcher.ResultSet), false, nil
}

// Invalidate removes every cached search result. Called after an indexing
// run commits, since any cached result may now be stale.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) buildKey(query string, fields []string, limit int) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	raw := fmt.Sprintf("%s|%s|%d", query, strings.Join(sorted, ","), limit)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

func (c *QueryCache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
