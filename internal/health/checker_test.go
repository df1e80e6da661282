package health

import (
	"context"
	"testing"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/cache"
	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockMonitored struct {
	mock.Mock
}

func (m *mockMonitored) HealthCheck(ctx context.Context) domain.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.HealthStatus)
}

func (m *mockMonitored) GetStats(ctx context.Context) map[string]any {
	args := m.Called(ctx)
	return args.Get(0).(map[string]any)
}

func healthy() domain.HealthStatus {
	return domain.HealthStatus{Status: domain.HealthStatusHealthy, Timestamp: time.Now()}
}

func TestCheckHealth_AllHealthy(t *testing.T) {
	v := new(mockMonitored)
	v.On("HealthCheck", mock.Anything).Return(healthy())
	v.On("GetStats", mock.Anything).Return(map[string]any{"validations": int64(3)})

	checker := NewSystemHealthChecker(v, cache.NewLRUCache(10))
	health := checker.CheckHealth(context.Background())

	assert.Equal(t, domain.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Components, ComponentValidator)
	assert.Contains(t, health.Components, ComponentCache)
	assert.Equal(t, map[string]any{"validations": int64(3)}, health.Metrics[ComponentValidator])
	assert.Contains(t, health.Metrics, "system")
	assert.True(t, checker.IsHealthy(context.Background()))
}

func TestCheckHealth_WorstStatusWins(t *testing.T) {
	v := new(mockMonitored)
	v.On("HealthCheck", mock.Anything).Return(domain.HealthStatus{Status: domain.HealthStatusUnhealthy})
	v.On("GetStats", mock.Anything).Return(map[string]any{})

	c := cache.NewLRUCache(1)
	c.Set("k", &domain.Result{})

	checker := NewSystemHealthChecker(v, c)
	health := checker.CheckHealth(context.Background())

	assert.Equal(t, domain.HealthStatusUnhealthy, health.Status)
	assert.Equal(t, domain.HealthStatusDegraded, health.Components[ComponentCache].Status)
}

func TestCheckHealth_CachedWithinTTL(t *testing.T) {
	v := new(mockMonitored)
	v.On("HealthCheck", mock.Anything).Return(healthy()).Once()
	v.On("GetStats", mock.Anything).Return(map[string]any{}).Once()

	checker := NewSystemHealthChecker(v, nil)
	first := checker.CheckHealth(context.Background())
	second := checker.CheckHealth(context.Background())

	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.NotContains(t, first.Components, ComponentCache)
	v.AssertExpectations(t)
}

func TestCheckComponent(t *testing.T) {
	v := new(mockMonitored)
	v.On("HealthCheck", mock.Anything).Return(healthy())

	withCache := NewSystemHealthChecker(v, cache.NewLRUCache(10))
	assert.Equal(t, domain.HealthStatusHealthy, withCache.CheckComponent(context.Background(), ComponentValidator).Status)
	assert.Equal(t, "Cache is operating normally", withCache.CheckComponent(context.Background(), ComponentCache).Message)

	withoutCache := NewSystemHealthChecker(v, nil)
	assert.Equal(t, "Cache is disabled", withoutCache.CheckComponent(context.Background(), ComponentCache).Message)

	unknown := withCache.CheckComponent(context.Background(), "storage")
	assert.Equal(t, domain.HealthStatusUnhealthy, unknown.Status)
	assert.Equal(t, "storage", unknown.Details["component"])
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		current, component, want string
	}{
		{domain.HealthStatusHealthy, domain.HealthStatusHealthy, domain.HealthStatusHealthy},
		{domain.HealthStatusHealthy, domain.HealthStatusDegraded, domain.HealthStatusDegraded},
		{domain.HealthStatusDegraded, domain.HealthStatusHealthy, domain.HealthStatusDegraded},
		{domain.HealthStatusDegraded, domain.HealthStatusUnhealthy, domain.HealthStatusUnhealthy},
		{domain.HealthStatusUnhealthy, domain.HealthStatusDegraded, domain.HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, aggregateStatus(tt.current, tt.component))
	}
}
