// Package cache keeps recent validation results so identical submissions are
// answered without re-running the rules.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
)

// DefaultMaxSize is used when a non-positive size is requested
const DefaultMaxSize = 1000

// Key fingerprints manifest content together with the options it was
// validated under.
func Key(content []byte, opts domain.Options) string {
	h := sha256.New()
	var flags [2]byte
	if opts.Listed {
		flags[0] = 1
	}
	if opts.Packaged {
		flags[1] = 1
	}
	h.Write(flags[:])
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	key    string
	result *domain.Result
	stored time.Time
	prev   *entry
	next   *entry
}

// LRUCache is a size-bounded result cache with least-recently-used eviction.
// Results are deep-copied on the way in and out so callers never share state.
type LRUCache struct {
	maxSize int
	size    int

	// sentinels of the recency list; head.next is the most recent entry
	head *entry
	tail *entry

	entries map[string]*entry
	mutex   sync.RWMutex

	hits      int64
	misses    int64
	evictions int64
}

// NewLRUCache creates a cache holding at most maxSize results
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	head := &entry{}
	tail := &entry{}
	head.next = tail
	tail.prev = head

	return &LRUCache{
		maxSize: maxSize,
		head:    head,
		tail:    tail,
		entries: make(map[string]*entry),
	}
}

// Get returns a copy of the cached result for key
func (c *LRUCache) Get(key string) (*domain.Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.unlink(e)
	c.pushFront(e)
	atomic.AddInt64(&c.hits, 1)
	return e.result.Clone(), true
}

// Set stores a copy of result under key, evicting the oldest entry when full
func (c *LRUCache) Set(key string, result *domain.Result) {
	if result == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[key]; ok {
		e.result = result.Clone()
		e.stored = time.Now()
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry{key: key, result: result.Clone(), stored: time.Now()}
	c.pushFront(e)
	c.entries[key] = e
	c.size++

	if c.size > c.maxSize {
		c.evictOldest()
	}
}

// Invalidate drops key from the cache
func (c *LRUCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[key]; ok {
		c.unlink(e)
		delete(c.entries, key)
		c.size--
	}
}

// Clear drops every entry and resets the counters
func (c *LRUCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.entries = make(map[string]*entry)
	c.size = 0

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns the current counters
func (c *LRUCache) Stats() domain.CacheStats {
	c.mutex.RLock()
	size := c.size
	c.mutex.RUnlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return domain.CacheStats{
		Hits:     hits,
		Misses:   misses,
		Size:     size,
		MaxSize:  c.maxSize,
		HitRatio: ratio,
	}
}

// HealthCheck reports degraded when the cache is nearly full or rarely hit
func (c *LRUCache) HealthCheck(ctx context.Context) domain.HealthStatus {
	stats := c.Stats()

	status := domain.HealthStatusHealthy
	message := "Cache is operating normally"
	details := map[string]any{
		"size":      stats.Size,
		"max_size":  stats.MaxSize,
		"hit_ratio": stats.HitRatio,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": atomic.LoadInt64(&c.evictions),
	}

	if stats.Size >= int(float64(stats.MaxSize)*0.9) {
		status = domain.HealthStatusDegraded
		message = "Cache is near capacity"
		details["warning"] = "Cache utilization above 90%"
	}

	if stats.HitRatio < 0.5 && stats.Hits+stats.Misses > 100 {
		if status == domain.HealthStatusHealthy {
			status = domain.HealthStatusDegraded
			message = "Low cache hit ratio"
		}
		details["hit_ratio_warning"] = "Hit ratio below 50%"
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

func (c *LRUCache) pushFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRUCache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.unlink(oldest)
	delete(c.entries, oldest.key)
	c.size--
	atomic.AddInt64(&c.evictions, 1)
}
