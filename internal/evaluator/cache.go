package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/timvw/plan-judge/internal/model"
	ppotel "github.com/timvw/plan-judge/internal/otel"
)

// ScoreCache caches criterion scores keyed by a hash of provider, model,
// criterion, audit text and plan text. Re-running an evaluation over the same
// documents reuses earlier scores instead of paying for the LLM calls again.
//
// Entries have a TTL so that prompt or rubric changes eventually take effect.
// When dir is set, entries are also persisted as one JSON file per key.
type ScoreCache struct {
	mu        sync.RWMutex
	entries   map[string]*cacheEntry
	ttl       time.Duration
	dir       string
	hits      int64
	misses    int64
	evictions int64

	// Metrics, if set, counts expired and invalidated entries.
	Metrics *ppotel.Metrics
}

type cacheEntry struct {
	Score    model.CriterionScore `json:"score"`
	CachedAt time.Time            `json:"cached_at"`
}

// CacheStats is a point-in-time view of cache usage.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewScoreCache creates a cache with the given TTL. A TTL of 0 disables
// caching. dir may be empty for a memory-only cache.
func NewScoreCache(ttl time.Duration, dir string) *ScoreCache {
	return &ScoreCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		dir:     dir,
	}
}

// CacheKey returns the cache key for a request evaluated by provider/model.
// The plan ID is not part of the key: identical plan text scores the same.
// The criterion's wording is, so that editing a rubric invalidates earlier
// scores.
func CacheKey(provider, modelName string, req Request) string {
	h := sha256.New()
	c := req.Criterion
	for _, part := range []string{
		provider, modelName,
		c.Name, c.Title, c.Description, strings.Join(c.Rubric, "\n"),
		req.AuditText, req.Plan.Text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Lookup returns a copy of the cached score for key if present and fresh.
func (c *ScoreCache) Lookup(ctx context.Context, key string) (*model.CriterionScore, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		entry, ok = c.loadLocked(key)
	}
	if !ok {
		c.misses++
		return nil, false
	}
	// TTL expired: drop the stale entry so the next Store starts fresh.
	if time.Since(entry.CachedAt) > c.ttl {
		c.evictLocked(ctx, key)
		c.misses++
		return nil, false
	}

	c.hits++
	s := entry.Score
	s.Actions = append([]int(nil), entry.Score.Actions...)
	return &s, true
}

// Store saves a score under key.
func (c *ScoreCache) Store(key string, score model.CriterionScore) {
	if c.ttl <= 0 {
		return
	}

	entry := &cacheEntry{Score: score, CachedAt: time.Now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.persistLocked(key, entry)
}

// Invalidate removes the entry for key, in memory and on disk.
func (c *ScoreCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if _, ok := c.loadLocked(key); !ok {
			return
		}
	}
	c.evictLocked(ctx, key)
}

func (c *ScoreCache) evictLocked(ctx context.Context, key string) {
	delete(c.entries, key)
	if c.dir != "" {
		_ = os.Remove(c.path(key))
	}
	c.evictions++
	c.Metrics.RecordCacheInvalidation(ctx)
}

// Stats returns cache statistics.
func (c *ScoreCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

func (c *ScoreCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *ScoreCache) loadLocked(key string) (*cacheEntry, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	c.entries[key] = &entry
	return &entry, true
}

// persistLocked writes entry to disk. Persistence is best effort: a
// read-only cache dir degrades to a memory-only cache.
func (c *ScoreCache) persistLocked(key string, entry *cacheEntry) {
	if c.dir == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path(key))
}

// CachingEvaluator serves repeated evaluations from a ScoreCache and
// delegates misses to Next. Only successful scores are cached.
type CachingEvaluator struct {
	Next    Evaluator
	Cache   *ScoreCache
	Metrics *ppotel.Metrics
	// Refresh drops cached scores instead of serving them, so that every
	// criterion is evaluated again and the fresh score replaces the old one.
	Refresh bool
}

// NewCachingEvaluator wraps next with cache.
func NewCachingEvaluator(next Evaluator, cache *ScoreCache, metrics *ppotel.Metrics) *CachingEvaluator {
	return &CachingEvaluator{Next: next, Cache: cache, Metrics: metrics}
}

// Provider returns the wrapped evaluator's provider.
func (e *CachingEvaluator) Provider() string {
	return e.Next.Provider()
}

// Model returns the wrapped evaluator's model.
func (e *CachingEvaluator) Model() string {
	return e.Next.Model()
}

// Evaluate returns a cached score when available; cached scores carry
// Source "cache", the requesting plan's ID and zero token usage.
func (e *CachingEvaluator) Evaluate(ctx context.Context, req Request) (*model.CriterionScore, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	key := CacheKey(e.Next.Provider(), e.Next.Model(), req)
	if e.Refresh {
		e.Cache.Invalidate(ctx, key)
	} else if cached, ok := e.Cache.Lookup(ctx, key); ok {
		e.Metrics.RecordCacheHit(ctx)
		cached.PlanID = req.Plan.ID
		cached.Source = model.ScoreSourceCache
		cached.Usage = model.TokenUsage{}
		cached.Actions = citedActionsWithin(cached.Actions, len(req.Plan.Actions))
		return cached, nil
	}
	e.Metrics.RecordCacheMiss(ctx)

	score, err := e.Next.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	e.Cache.Store(key, *score)
	return score, nil
}

// citedActionsWithin drops indices outside a plan with n actions.
func citedActionsWithin(idx []int, n int) []int {
	var out []int
	for _, i := range idx {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	return out
}
