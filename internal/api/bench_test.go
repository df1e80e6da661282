package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mozilla/firefox-app-validator-manifest/internal/cache"
	"github.com/mozilla/firefox-app-validator-manifest/internal/health"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/service"

	"github.com/rs/zerolog"
)

func BenchmarkValidateEndpoint(b *testing.B) {
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.Disabled)
	defer zerolog.SetGlobalLevel(level)

	resultCache := cache.NewLRUCache(cache.DefaultMaxSize)
	svc := service.New(ruleset.MustDefault(), resultCache)
	router := SetupRouter(RouterDependencies{
		Validation:    svc,
		HealthChecker: health.NewSystemHealthChecker(svc, resultCache),
	}, RouterConfig{BodyLimit: 1048576})
	defer router.Cleanup()

	payloads := []string{
		`{"manifest":{"name":"My App","description":"An app"}}`,
		`{"manifest":{"name":"My App","description":"An app"},"listed":true}`,
		`{"manifest":"{\"name\":\"Text\",\"description\":\"d\"}"}`,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("POST", "/v1/validate", strings.NewReader(payloads[i%len(payloads)]))
		req.Header.Set("Content-Type", "application/json")

		resp, err := router.App.Test(req, -1)
		if err != nil {
			b.Fatal(err)
		}
		if resp.StatusCode != 200 {
			b.Fatalf("unexpected status %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}
	b.StopTimer()

	stats := resultCache.Stats()
	b.ReportMetric(stats.HitRatio, "hit_ratio")
}
