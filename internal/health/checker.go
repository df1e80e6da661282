package health

import (
	"context"
	"sync"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
)

// Component names reported by the checker
const (
	ComponentValidator = "validator"
	ComponentCache     = "cache"
)

// SystemHealthChecker aggregates validator and cache health
type SystemHealthChecker struct {
	validator domain.Monitored
	cache     domain.ResultCache

	timeout   time.Duration
	startTime time.Time

	// Cached health status to avoid expensive checks on every request
	lastCheck   time.Time
	lastHealth  domain.SystemHealth
	cacheTTL    time.Duration
	healthMutex sync.Mutex
}

// NewSystemHealthChecker creates a checker. cache may be nil when result
// caching is disabled.
func NewSystemHealthChecker(validator domain.Monitored, cache domain.ResultCache) *SystemHealthChecker {
	return &SystemHealthChecker{
		validator: validator,
		cache:     cache,
		timeout:   5 * time.Second,
		cacheTTL:  30 * time.Second,
		startTime: time.Now(),
	}
}

// CheckHealth checks every component, reusing the last answer for cacheTTL
func (h *SystemHealthChecker) CheckHealth(ctx context.Context) domain.SystemHealth {
	h.healthMutex.Lock()
	defer h.healthMutex.Unlock()

	if !h.lastCheck.IsZero() && time.Since(h.lastCheck) < h.cacheTTL {
		return h.lastHealth
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	now := time.Now()
	components := make(map[string]domain.HealthStatus)
	overallStatus := domain.HealthStatusHealthy

	validatorHealth := h.validator.HealthCheck(checkCtx)
	components[ComponentValidator] = validatorHealth
	overallStatus = aggregateStatus(overallStatus, validatorHealth.Status)

	if h.cache != nil {
		cacheHealth := h.cache.HealthCheck(checkCtx)
		components[ComponentCache] = cacheHealth
		overallStatus = aggregateStatus(overallStatus, cacheHealth.Status)
	}

	systemHealth := domain.SystemHealth{
		Status:     overallStatus,
		Timestamp:  now,
		Components: components,
		Metrics:    h.collectMetrics(checkCtx),
		Uptime:     time.Since(h.startTime),
	}

	h.lastCheck = now
	h.lastHealth = systemHealth

	return systemHealth
}

// CheckComponent checks a single named component
func (h *SystemHealthChecker) CheckComponent(ctx context.Context, component string) domain.HealthStatus {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	switch component {
	case ComponentValidator:
		return h.validator.HealthCheck(checkCtx)
	case ComponentCache:
		if h.cache != nil {
			return h.cache.HealthCheck(checkCtx)
		}
		return domain.HealthStatus{
			Status:    domain.HealthStatusHealthy,
			Message:   "Cache is disabled",
			Timestamp: time.Now(),
		}
	default:
		return domain.HealthStatus{
			Status:    domain.HealthStatusUnhealthy,
			Message:   "Unknown component",
			Timestamp: time.Now(),
			Details: map[string]any{
				"component": component,
				"error":     "Component not found",
			},
		}
	}
}

// IsHealthy reports whether every component is healthy
func (h *SystemHealthChecker) IsHealthy(ctx context.Context) bool {
	return h.CheckHealth(ctx).Status == domain.HealthStatusHealthy
}

// aggregateStatus keeps the worse of two statuses: unhealthy > degraded > healthy
func aggregateStatus(current, componentStatus string) string {
	statusPriority := map[string]int{
		domain.HealthStatusHealthy:   0,
		domain.HealthStatusDegraded:  1,
		domain.HealthStatusUnhealthy: 2,
	}

	if statusPriority[componentStatus] > statusPriority[current] {
		return componentStatus
	}
	return current
}

func (h *SystemHealthChecker) collectMetrics(ctx context.Context) map[string]any {
	metrics := make(map[string]any)

	if stats := h.validator.GetStats(ctx); stats != nil {
		metrics[ComponentValidator] = stats
	}

	if h.cache != nil {
		cacheStats := h.cache.Stats()
		metrics[ComponentCache] = map[string]any{
			"hits":      cacheStats.Hits,
			"misses":    cacheStats.Misses,
			"size":      cacheStats.Size,
			"max_size":  cacheStats.MaxSize,
			"hit_ratio": cacheStats.HitRatio,
		}
	}

	metrics["system"] = map[string]any{
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"timestamp":      time.Now(),
	}

	return metrics
}
