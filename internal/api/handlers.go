package api

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/manifest"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/schema"
	"github.com/mozilla/firefox-app-validator-manifest/internal/service"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ValidationService validates manifests and exposes the active ruleset
type ValidationService interface {
	Validate(ctx context.Context, content any, opts domain.Options) (*service.Outcome, error)
	Rules() *ruleset.Ruleset
	Reload(ctx context.Context, dir string) error
	GetStats(ctx context.Context) map[string]any
}

// HandlerConfig carries request defaults for the handlers
type HandlerConfig struct {
	Defaults       domain.Options
	RequestTimeout time.Duration
	RulesDir       string
}

// Handlers contains all HTTP handlers for the manifest validation API
type Handlers struct {
	validation    ValidationService
	healthChecker domain.HealthChecker
	config        HandlerConfig
	startTime     time.Time
}

// NewHandlers creates a new instance of API handlers
func NewHandlers(validation ValidationService, healthChecker domain.HealthChecker, config HandlerConfig) *Handlers {
	return &Handlers{
		validation:    validation,
		healthChecker: healthChecker,
		config:        config,
		startTime:     time.Now(),
	}
}

// ValidateRequest represents the request payload for the validate endpoint
// @Description Manifest to validate. manifest may be a JSON object or a string holding manifest text.
type ValidateRequest struct {
	Manifest json.RawMessage `json:"manifest" swaggertype:"object"`
	Listed   *bool           `json:"listed,omitempty" example:"false"`
	Packaged *bool           `json:"packaged,omitempty" example:"false"`
}

// ValidateResponse represents the outcome of a validation
// @Description Validation outcome
type ValidateResponse struct {
	Valid       bool                `json:"valid" example:"false"`
	Errors      map[string]string   `json:"errors"`
	Warnings    map[string]string   `json:"warnings"`
	Diagnostics []domain.Diagnostic `json:"diagnostics"`
	CacheHit    bool                `json:"cache_hit" example:"false"`
}

// RulesResponse describes the active ruleset
// @Description Active ruleset tables
type RulesResponse struct {
	Policy        ruleset.Summary `json:"policy"`
	AppTypes      []string        `json:"app_types"`
	SemanticRules []string        `json:"semantic_rules"`
}

// ErrorResponse represents the standard error response format
// @Description Standard error response format
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Invalid input provided"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse represents the standard success response format
// @Description Standard success response format
type SuccessResponse struct {
	Status string `json:"status" example:"success"`
	Data   any    `json:"data"`
}

// HealthResponse represents the health check response
// @Description Health check response
type HealthResponse struct {
	Status     string                         `json:"status" example:"healthy"`
	Timestamp  string                         `json:"timestamp" example:"2023-01-01T12:00:00Z"`
	Components map[string]domain.HealthStatus `json:"components"`
	Uptime     string                         `json:"uptime" example:"1h2m3s"`
}

// ValidateHandler handles POST /v1/validate requests
// @Summary      Validate a manifest
// @Description  Validates a web app manifest and returns every error and warning found
// @Tags         Validation
// @Accept       json
// @Produce      json
// @Param        request body ValidateRequest true "Manifest and validation options"
// @Success      200 {object} SuccessResponse{data=ValidateResponse} "Validation completed"
// @Failure      400 {object} ErrorResponse "Invalid request payload"
// @Failure      408 {object} ErrorResponse "Validation timed out"
// @Failure      422 {object} ErrorResponse "Manifest missing"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/validate [post]
func (h *Handlers) ValidateHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		appErr := domain.NewAppError(
			domain.ErrInvalidInput,
			"Invalid JSON payload",
			400,
			map[string]string{"error": err.Error()},
		).WithContext(ctx, "validate_request_parsing")

		return h.sendError(c, appErr)
	}

	raw := bytes.TrimSpace(req.Manifest)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		appErr := domain.NewAppError(
			domain.ErrValidationFailed,
			"Manifest is required",
			422,
			map[string]string{"field": "manifest", "reason": "required"},
		).WithContext(ctx, "validate_request_validation")

		return h.sendError(c, appErr)
	}

	// A JSON string carries manifest text; anything else is the manifest itself
	var content any = []byte(raw)
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return h.sendError(c, domain.NewAppError(
				domain.ErrInvalidInput,
				"Manifest string is not valid JSON",
				400,
				map[string]string{"error": err.Error()},
			).WithContext(ctx, "validate_request_parsing"))
		}
		content = text
	}

	opts := h.config.Defaults
	if req.Listed != nil {
		opts.Listed = *req.Listed
	}
	if req.Packaged != nil {
		opts.Packaged = *req.Packaged
	}

	return h.validate(c, content, opts)
}

// ValidateRawHandler handles POST /v1/validate/raw requests
// @Summary      Validate manifest text
// @Description  Validates the request body as manifest text; text that is not JSON yields the InvalidJSON error
// @Tags         Validation
// @Accept       plain
// @Produce      json
// @Param        listed query bool false "Manifest is listed on the marketplace"
// @Param        packaged query bool false "Manifest belongs to a packaged app"
// @Param        manifest body string true "Manifest text"
// @Success      200 {object} SuccessResponse{data=ValidateResponse} "Validation completed"
// @Failure      408 {object} ErrorResponse "Validation timed out"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/validate/raw [post]
func (h *Handlers) ValidateRawHandler(c *fiber.Ctx) error {
	opts := domain.Options{
		Listed:   c.QueryBool("listed", h.config.Defaults.Listed),
		Packaged: c.QueryBool("packaged", h.config.Defaults.Packaged),
	}

	// fasthttp reuses the body buffer once the handler returns
	content := bytes.Clone(c.Body())
	if content == nil {
		content = []byte{}
	}

	return h.validate(c, content, opts)
}

func (h *Handlers) validate(c *fiber.Ctx, content any, opts domain.Options) error {
	ctx := c.UserContext()
	if h.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.RequestTimeout)
		defer cancel()
	}

	outcome, err := h.validation.Validate(ctx, content, opts)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return h.sendError(c, appErr)
		}

		log.Error().
			Err(err).
			Str("request_id", requestIDOf(c)).
			Msg("Failed to validate manifest")

		return h.sendError(c, domain.NewAppError(
			domain.ErrInternal,
			"Failed to validate manifest",
			500,
			nil,
		).WithContext(ctx, "validate"))
	}

	result := outcome.Result
	c.Locals(localValidation, validationLog{
		valid:    result.Valid(),
		errors:   len(result.Errors),
		warnings: len(result.Warnings),
		cacheHit: outcome.CacheHit,
	})

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: ValidateResponse{
			Valid:       result.Valid(),
			Errors:      result.Errors,
			Warnings:    result.Warnings,
			Diagnostics: result.Diagnostics,
			CacheHit:    outcome.CacheHit,
		},
	})
}

// RulesHandler handles GET /v1/rules requests
// @Summary      Describe the ruleset
// @Description  Returns the permission tables, marketplace URLs, banned origins and semantic rules in force
// @Tags         Rules
// @Produce      json
// @Success      200 {object} SuccessResponse{data=RulesResponse} "Active ruleset"
// @Router       /v1/rules [get]
func (h *Handlers) RulesHandler(c *fiber.Ctx) error {
	rules := h.validation.Rules()

	semantic := manifest.Rules()
	names := make([]string, len(semantic))
	for i, r := range semantic {
		names[i] = r.Name
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: RulesResponse{
			Policy:        rules.Summary(),
			AppTypes:      rules.AppTypes(),
			SemanticRules: names,
		},
	})
}

// SchemaHandler handles GET /v1/schema requests
// @Summary      Show a schema
// @Description  Returns the common manifest schema, an activity filter schema, or the access schema of one permission
// @Tags         Rules
// @Produce      json
// @Param        document query string false "common, activity_filter or activity_filter_value" default(common)
// @Param        permission query string false "Permission name; overrides document"
// @Success      200 {object} SuccessResponse{data=object} "Schema document"
// @Failure      404 {object} ErrorResponse "Unknown document or permission"
// @Router       /v1/schema [get]
func (h *Handlers) SchemaHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rules := h.validation.Rules()

	var node *schema.Node
	var name string

	if permission := c.Query("permission"); permission != "" {
		if rules.KnownPermission(permission) {
			node = rules.PermissionSchema(permission)
		}
		name = "permission:" + permission
	} else {
		name = c.Query("document", ruleset.DocCommon)
		switch name {
		case ruleset.DocCommon:
			node = rules.Common()
		case ruleset.DocActivityFilter:
			node = rules.ActivityFilter()
		case ruleset.DocActivityFilterValue:
			node = rules.ActivityFilterValue()
		}
	}

	if node == nil {
		return h.sendError(c, domain.NewAppError(
			domain.ErrNotFound,
			"Schema not found",
			404,
			map[string]string{"document": name},
		).WithContext(ctx, "schema_lookup"))
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"document": name,
			"schema":   node,
		},
	})
}

// ReloadHandler handles POST /v1/rules/reload requests
// @Summary      Reload the ruleset
// @Description  Reloads rule documents from the configured rules directory and clears cached results
// @Tags         Rules
// @Produce      json
// @Success      200 {object} SuccessResponse{data=object{sources=map[string]string}} "Ruleset reloaded"
// @Failure      422 {object} ErrorResponse "Rule documents are invalid"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/rules/reload [post]
func (h *Handlers) ReloadHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if err := h.validation.Reload(ctx, h.config.RulesDir); err != nil {
		log.Error().
			Err(err).
			Str("rules_dir", h.config.RulesDir).
			Str("request_id", requestIDOf(c)).
			Msg("Failed to reload ruleset")

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return h.sendError(c, appErr)
		}
		return h.sendError(c, domain.NewAppError(
			domain.ErrInternal,
			"Failed to reload ruleset",
			500,
			nil,
		).WithContext(ctx, "reload"))
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"sources": h.validation.Rules().Sources(),
		},
	})
}

// HealthHandler handles GET /health requests
// @Summary      Health check
// @Description  Returns the health status of the service
// @Tags         System
// @Produce      json
// @Success      200 {object} HealthResponse "Service is healthy"
// @Failure      503 {object} HealthResponse "Service is degraded or unhealthy"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	health := h.healthChecker.CheckHealth(c.UserContext())

	status := 200
	if health.Status != domain.HealthStatusHealthy {
		status = 503
	}

	return c.Status(status).JSON(HealthResponse{
		Status:     health.Status,
		Timestamp:  health.Timestamp.Format(time.RFC3339),
		Components: health.Components,
		Uptime:     health.Uptime.Round(time.Second).String(),
	})
}

// MetricsHandler handles GET /metrics requests
// @Summary      System metrics
// @Description  Returns validation counters and cache statistics
// @Tags         System
// @Produce      json
// @Success      200 {object} SuccessResponse{data=object} "Successfully retrieved metrics"
// @Router       /metrics [get]
func (h *Handlers) MetricsHandler(c *fiber.Ctx) error {
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"validation": h.validation.GetStats(c.UserContext()),
			"uptime": map[string]any{
				"seconds":   time.Since(h.startTime).Seconds(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}

// sendError sends a standardized error response
func (h *Handlers) sendError(c *fiber.Ctx, appErr *domain.AppError) error {
	status := appErr.StatusCode
	if status == 0 {
		status = 500
	}
	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

func requestIDOf(c *fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok {
		return rid
	}
	return ""
}
