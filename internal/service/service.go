// Package service puts the result cache in front of the manifest validator
// and lets the active ruleset be swapped at runtime.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/cache"
	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/manifest"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Outcome is a validation result together with how it was produced
type Outcome struct {
	Result   *domain.Result
	CacheHit bool
}

// Service validates manifests through the result cache. A nil cache
// disables caching.
type Service struct {
	mu        sync.RWMutex
	validator domain.ManifestValidator
	rules     *ruleset.Ruleset
	cache     domain.ResultCache

	// generation counts reloads; results computed under an older
	// generation are not cached
	generation uint64
}

// New creates a service around a validator built from rules
func New(rules *ruleset.Ruleset, resultCache domain.ResultCache) *Service {
	return &Service{
		validator: manifest.NewValidator(rules),
		rules:     rules,
		cache:     resultCache,
	}
}

// NewWithValidator creates a service around an existing validator
func NewWithValidator(validator domain.ManifestValidator, rules *ruleset.Ruleset, resultCache domain.ResultCache) *Service {
	return &Service{
		validator: validator,
		rules:     rules,
		cache:     resultCache,
	}
}

// Validate validates content under opts, answering from the cache when the
// same content was seen with the same options.
func (s *Service) Validate(ctx context.Context, content any, opts domain.Options) (*Outcome, error) {
	if err := cancelled(ctx, "Validate operation cancelled"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	validator := s.validator
	resultCache := s.cache
	generation := s.generation
	s.mu.RUnlock()

	key, keyed := cacheKey(content, opts)
	if keyed && resultCache != nil {
		if cached, found := resultCache.Get(key); found {
			return &Outcome{Result: cached, CacheHit: true}, nil
		}
	}

	result := validator.Validate(content, opts)

	if err := cancelled(ctx, "Validate operation cancelled during validation"); err != nil {
		return nil, err
	}

	if keyed && resultCache != nil {
		s.mu.RLock()
		if s.generation == generation {
			resultCache.Set(key, result)
		}
		s.mu.RUnlock()
	}

	return &Outcome{Result: result}, nil
}

// Rules returns the active ruleset
func (s *Service) Rules() *ruleset.Ruleset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Reload loads the rule documents from dir, replaces the active validator
// and drops every cached result.
func (s *Service) Reload(ctx context.Context, dir string) error {
	if err := cancelled(ctx, "Reload operation cancelled"); err != nil {
		return err
	}

	rules, err := ruleset.Load(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = rules
	s.validator = manifest.NewValidator(rules)
	s.generation++
	s.InvalidateCache(ctx)
	s.mu.Unlock()

	log.Info().
		Str("rules_dir", dir).
		Interface("sources", rules.Sources()).
		Msg("Ruleset reloaded")

	return nil
}

// InvalidateCache clears the result cache
func (s *Service) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// HealthCheck combines validator and cache health
func (s *Service) HealthCheck(ctx context.Context) domain.HealthStatus {
	s.mu.RLock()
	validator := s.validator
	s.mu.RUnlock()

	health := validator.HealthCheck(ctx)
	details := map[string]any{
		"validator_status": health.Status,
		"cache_enabled":    s.cache != nil,
	}
	for k, v := range health.Details {
		details[k] = v
	}

	status := health.Status
	message := health.Message

	if s.cache != nil {
		cacheHealth := s.cache.HealthCheck(ctx)
		details["cache_status"] = cacheHealth.Status
		if cacheHealth.Status != domain.HealthStatusHealthy && status == domain.HealthStatusHealthy {
			status = domain.HealthStatusDegraded
			message = "Cache issues detected"
			details["cache_message"] = cacheHealth.Message
		}
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// GetStats returns validator counters and cache statistics
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	validator := s.validator
	s.mu.RUnlock()

	stats := validator.GetStats(ctx)
	if stats == nil {
		stats = make(map[string]any)
	}

	if s.cache != nil {
		cacheStats := s.cache.Stats()
		stats["cache_hits"] = cacheStats.Hits
		stats["cache_misses"] = cacheStats.Misses
		stats["cache_size"] = cacheStats.Size
		stats["cache_max_size"] = cacheStats.MaxSize
		stats["cache_hit_ratio"] = cacheStats.HitRatio
	}

	return stats
}

func cancelled(ctx context.Context, message string) error {
	select {
	case <-ctx.Done():
		return domain.NewAppErrorWithCause(
			domain.ErrTimeout,
			message,
			408,
			ctx.Err(),
			nil,
		).WithContext(ctx, "validate")
	default:
		return nil
	}
}

// cacheKey fingerprints content. Text is hashed as given; decoded values are
// hashed through their JSON encoding, which orders object keys. Values that
// cannot be encoded are never cached.
func cacheKey(content any, opts domain.Options) (string, bool) {
	var data []byte
	switch c := content.(type) {
	case string:
		data = []byte(c)
	case []byte:
		data = c
	case json.RawMessage:
		data = c
	default:
		encoded, err := json.Marshal(c)
		if err != nil {
			return "", false
		}
		// Prefix decoded values so they never share a key with identical text
		data = append([]byte{0}, encoded...)
	}
	return cache.Key(data, opts), true
}
