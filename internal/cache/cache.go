// Package cache provides a content-addressed cache of rendered reports.
//
// A report is fully determined by its two input tables and its config, so
// the cache key is a digest over the three digests. Entries never need
// invalidation; the TTL only bounds memory held by stale datasets.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
)

// Default sizing for NewReportCache.
const (
	DefaultTTL   = 10 * time.Minute
	DefaultMaxMB = 64
)

// ReportCache stores rendered report bodies keyed by Key.
// Safe for concurrent use.
type ReportCache struct {
	cache *bigcache.BigCache
}

// NewReportCache creates a cache. ttl <= 0 and maxMB <= 0 take the defaults.
func NewReportCache(ttl time.Duration, maxMB int) (*ReportCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxMB <= 0 {
		maxMB = DefaultMaxMB
	}

	config := bigcache.DefaultConfig(ttl)
	config.HardMaxCacheSize = maxMB
	config.CleanWindow = ttl / 2
	config.Verbose = false

	c, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("init report cache: %w", err)
	}
	return &ReportCache{cache: c}, nil
}

// Key derives the cache key for reconciling left against right under cfg.
// Both tables contribute their full content, including row order, since
// the left row order appears in the report.
func Key(left, right *ir.Table, cfg engine.Config) (string, error) {
	l, err := ir.TableDigest(left)
	if err != nil {
		return "", fmt.Errorf("cache key: left: %w", err)
	}
	r, err := ir.TableDigest(right)
	if err != nil {
		return "", fmt.Errorf("cache key: right: %w", err)
	}
	return KeyFor(l, r, cfg)
}

// KeyFor is Key over precomputed table digests, for callers that
// reconcile the same tables under many configs.
func KeyFor(leftDigest, rightDigest string, cfg engine.Config) (string, error) {
	c, err := cfg.Digest()
	if err != nil {
		return "", fmt.Errorf("cache key: config: %w", err)
	}
	return ir.Digest(ir.DomainReport, []string{leftDigest, rightDigest, c})
}

// Get returns the cached body for key, or ok=false on a miss.
func (c *ReportCache) Get(key string) (body []byte, ok bool, err error) {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores body under key.
func (c *ReportCache) Set(key string, body []byte) error {
	return c.cache.Set(key, body)
}

// Reset drops every entry, e.g. after the served datasets are reloaded.
func (c *ReportCache) Reset() error {
	return c.cache.Reset()
}

// Len returns the number of entries.
func (c *ReportCache) Len() int {
	return c.cache.Len()
}

// Close releases the cache's background cleaner.
func (c *ReportCache) Close() error {
	return c.cache.Close()
}
