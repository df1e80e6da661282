// Package manifest validates web app manifests: the common schema is walked
// first, then every semantic rule runs in a fixed order.
package manifest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/schema"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// InvalidJSONMessage is reported when the content cannot be decoded
const InvalidJSONMessage = "Manifest is not in a valid JSON format or has invalid properties"

// Validator runs validation sessions against one ruleset. It holds no
// per-call state and is safe for concurrent use.
type Validator struct {
	rules *ruleset.Ruleset

	validations   atomic.Int64
	invalid       atomic.Int64
	parseFailures atomic.Int64
	totalNanos    atomic.Int64
	startTime     time.Time
}

// NewValidator creates a validator for the given ruleset
func NewValidator(rules *ruleset.Ruleset) *Validator {
	return &Validator{
		rules:     rules,
		startTime: time.Now(),
	}
}

// Ruleset returns the rules the validator applies
func (v *Validator) Ruleset() *ruleset.Ruleset {
	return v.rules
}

// Validate checks content and returns a fresh result. content may be JSON text
// (string, []byte, json.RawMessage) or an already decoded value. Text that does
// not decode yields a single InvalidJSON error and no further checks run.
func (v *Validator) Validate(content any, opts domain.Options) *domain.Result {
	start := time.Now()
	report := domain.NewReport()

	doc, ok := decode(content)
	if !ok {
		report.Error(domain.CodeInvalidJSON, domain.CodeInvalidJSON, domain.KindStructural, nil, InvalidJSONMessage)
		v.parseFailures.Add(1)
		return v.finish(report, opts, start)
	}

	walker := schema.NewWalker(opts, v.rules.MarketplaceRequired())
	walker.Walk(report, doc, v.rules.Common(), "", nil)

	// A non-object root has already been reported by the walker; the rules
	// then see an empty manifest.
	obj, isObject := doc.(map[string]any)
	if !isObject {
		obj = map[string]any{}
	}

	s := &session{
		manifest: obj,
		opts:     opts,
		report:   report,
		rules:    v.rules,
		walker:   walker,
	}
	for _, rule := range semanticRules {
		rule.check(s)
	}

	return v.finish(report, opts, start)
}

func (v *Validator) finish(report *domain.Report, opts domain.Options, start time.Time) *domain.Result {
	result := report.Result()
	elapsed := time.Since(start)

	v.validations.Add(1)
	v.totalNanos.Add(elapsed.Nanoseconds())
	if !result.Valid() {
		v.invalid.Add(1)
	}

	log.Debug().
		Bool("listed", opts.Listed).
		Bool("packaged", opts.Packaged).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Int("diagnostics", len(result.Diagnostics)).
		Dur("duration", elapsed).
		Msg("Manifest validated")

	return result
}

// decode turns content into a JSON tree of map[string]any, []any and scalars
func decode(content any) (any, bool) {
	var data []byte
	switch c := content.(type) {
	case string:
		data = []byte(c)
	case []byte:
		data = c
	case json.RawMessage:
		data = c
	case nil, bool, float64, map[string]any, []any:
		return c, true
	default:
		// Arbitrary Go values are normalized through their JSON encoding so
		// the walker only ever sees decoded types.
		encoded, err := json.Marshal(c)
		if err != nil {
			return nil, false
		}
		data = encoded
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// HealthCheck reports whether the ruleset is usable
func (v *Validator) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatusHealthy
	message := "Validator is operating normally"

	details := map[string]any{
		"semantic_rules":     len(semanticRules),
		"validations":        v.validations.Load(),
		"marketplace_fields": len(v.rules.MarketplaceRequired()),
	}

	if v.rules.Common() == nil {
		status = domain.HealthStatusUnhealthy
		message = "Common schema is not loaded"
	} else if len(v.rules.AppTypes()) == 0 {
		status = domain.HealthStatusDegraded
		message = "No permission tables loaded"
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// GetStats returns validation counters
func (v *Validator) GetStats(ctx context.Context) map[string]any {
	validations := v.validations.Load()
	var avg time.Duration
	if validations > 0 {
		avg = time.Duration(v.totalNanos.Load() / validations)
	}

	ruleNames := make([]string, len(semanticRules))
	for i, r := range semanticRules {
		ruleNames[i] = r.Name
	}

	return map[string]any{
		"validations":      validations,
		"invalid":          v.invalid.Load(),
		"parse_failures":   v.parseFailures.Load(),
		"average_duration": avg.String(),
		"semantic_rules":   ruleNames,
		"rule_sources":     v.rules.Sources(),
		"uptime":           time.Since(v.startTime).String(),
	}
}
