// Package middleware holds fiber middlewares shared by the HTTP service.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"

	"github.com/gofiber/fiber/v2"
)

const (
	bucketIdleTTL   = time.Hour
	cleanupInterval = 10 * time.Minute
)

// Limit is the capacity and refill rate (tokens per second) of a bucket
type Limit struct {
	Capacity   int
	RefillRate int
}

// TokenBucket is a single token bucket with fractional refill
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a full bucket
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a token could be taken
func (tb *TokenBucket) Allow() bool {
	allowed, _, _ := tb.Take()
	return allowed
}

// Take consumes a token when one is available and reports the tokens left
// and how long until the next token arrives
func (tb *TokenBucket) Take() (allowed bool, remaining int, wait time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	tb.tokens = min(float64(tb.capacity), tb.tokens+now.Sub(tb.lastRefill).Seconds()*float64(tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, int(tb.tokens), 0
	}

	if tb.refillRate <= 0 {
		return false, 0, time.Minute
	}
	return false, 0, time.Duration((1 - tb.tokens) / float64(tb.refillRate) * float64(time.Second))
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return now.Sub(tb.lastRefill)
}

type bucketKey struct {
	client   string
	endpoint string
}

// RateLimiter keeps one bucket per client and endpoint
type RateLimiter struct {
	mutex   sync.RWMutex
	buckets map[bucketKey]*TokenBucket

	defaults Limit
	limits   map[string]Limit
}

// NewRateLimiter creates a rate limiter whose validation endpoints get the
// given rate and burst. Introspection endpoints get half of it, reload and
// monitoring endpoints get fixed small buckets.
func NewRateLimiter(rps, burst int) *RateLimiter {
	validation := Limit{Capacity: burst, RefillRate: rps}
	introspection := Limit{Capacity: max(burst/2, 1), RefillRate: max(rps/2, 1)}
	monitoring := Limit{Capacity: 20, RefillRate: 2}

	return &RateLimiter{
		buckets:  make(map[bucketKey]*TokenBucket),
		defaults: validation,
		limits: map[string]Limit{
			"/v1/validate":     validation,
			"/v1/validate/raw": validation,
			"/v1/rules":        introspection,
			"/v1/schema":       introspection,
			"/v1/rules/reload": {Capacity: 2, RefillRate: 1},
			"/health":          monitoring,
			"/metrics":         monitoring,
		},
	}
}

func (rl *RateLimiter) limitFor(endpoint string) Limit {
	if limit, ok := rl.limits[endpoint]; ok {
		return limit
	}
	return rl.defaults
}

func (rl *RateLimiter) getBucket(clientID, endpoint string) *TokenBucket {
	key := bucketKey{client: clientID, endpoint: endpoint}

	rl.mutex.RLock()
	bucket, ok := rl.buckets[key]
	rl.mutex.RUnlock()
	if ok {
		return bucket
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	if bucket, ok := rl.buckets[key]; ok {
		return bucket
	}

	limit := rl.limitFor(endpoint)
	bucket = NewTokenBucket(limit.Capacity, limit.RefillRate)
	rl.buckets[key] = bucket
	return bucket
}

// clientID identifies the caller by API key, then Authorization header, then IP
func clientID(c *fiber.Ctx) string {
	if apiKey := c.Get("X-API-Key"); apiKey != "" {
		return "api:" + apiKey
	}
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		return "auth:" + auth
	}
	return "ip:" + c.IP()
}

// Middleware returns the fiber handler enforcing the limits
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientID(c)
		endpoint := c.Path()

		bucket := rl.getBucket(client, endpoint)
		allowed, remaining, wait := bucket.Take()

		c.Set("X-RateLimit-Limit", strconv.Itoa(bucket.capacity))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if allowed {
			return c.Next()
		}
		return reject(c, client, endpoint, wait)
	}
}

func reject(c *fiber.Ctx, client, endpoint string, wait time.Duration) error {
	retryAfter := max(int(math.Ceil(wait.Seconds())), 1)

	appErr := domain.NewAppError(
		domain.ErrRateLimit,
		"Rate limit exceeded",
		fiber.StatusTooManyRequests,
		map[string]any{
			"client_id":   client,
			"endpoint":    endpoint,
			"retry_after": retryAfter,
		},
	).WithContext(c.UserContext(), "rate_limit")

	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	c.Set("X-RateLimit-Reset", time.Now().Add(wait).Format(time.RFC3339))

	return c.Status(appErr.StatusCode).JSON(fiber.Map{
		"status":  "error",
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})
}

// CleanupOldBuckets drops buckets idle for longer than an hour
func (rl *RateLimiter) CleanupOldBuckets() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		if bucket.idleSince(now) > bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs CleanupOldBuckets periodically until stop is called
func (rl *RateLimiter) StartCleanupRoutine() (stop func()) {
	ticker := time.NewTicker(cleanupInterval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldBuckets()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// GetStats returns bucket counts and the configured limits
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mutex.RLock()
	active := len(rl.buckets)
	rl.mutex.RUnlock()

	limits := make(map[string]map[string]int, len(rl.limits))
	for endpoint, l := range rl.limits {
		limits[endpoint] = map[string]int{"capacity": l.Capacity, "refill_rate": l.RefillRate}
	}

	return map[string]any{
		"active_buckets":      active,
		"default_capacity":    rl.defaults.Capacity,
		"default_refill_rate": rl.defaults.RefillRate,
		"endpoint_limits":     limits,
	}
}
