package domain

import "context"

// ManifestValidator validates manifest content and returns its diagnostics
type ManifestValidator interface {
	Validate(content any, opts Options) *Result
	Monitored
}

// Monitored is a component that reports its health and counters
type Monitored interface {
	HealthCheck(ctx context.Context) HealthStatus
	GetStats(ctx context.Context) map[string]any
}

// ResultCache caches validation results keyed by content fingerprint
type ResultCache interface {
	Get(key string) (*Result, bool)
	Set(key string, result *Result)
	Invalidate(key string)
	Clear()
	Stats() CacheStats

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthChecker defines the interface for system health monitoring
type HealthChecker interface {
	CheckHealth(ctx context.Context) SystemHealth
	CheckComponent(ctx context.Context, component string) HealthStatus
}
