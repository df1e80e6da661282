package api

import (
	"context"
	"strings"
	"time"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const localValidation = "validation"

// RouterConfig contains configuration for the HTTP router
type RouterConfig struct {
	CORSOrigins    []string
	BodyLimit      int
	RateLimitRPS   int
	RateLimitBurst int
	ReloadEnabled  bool
	Handler        HandlerConfig
}

// RouterDependencies contains all dependencies needed by the router
type RouterDependencies struct {
	Validation    ValidationService
	HealthChecker domain.HealthChecker
}

// RouterResult contains the configured app and cleanup function
type RouterResult struct {
	App     *fiber.App
	Cleanup func()
}

// validationLog is what a validation handler leaves for the request log
type validationLog struct {
	valid    bool
	errors   int
	warnings int
	cacheHit bool
}

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
}

// fiber errors mapped onto error codes; anything else is INTERNAL_ERROR
var frameworkErrorCodes = map[int]string{
	fiber.StatusRequestEntityTooLarge: domain.ErrTooLarge,
	fiber.StatusBadRequest:            domain.ErrInvalidInput,
	fiber.StatusNotFound:              domain.ErrNotFound,
	fiber.StatusMethodNotAllowed:      domain.ErrNotFound,
}

// SetupRouter builds the fiber app serving the validator
func SetupRouter(deps RouterDependencies, config RouterConfig) *RouterResult {
	app := fiber.New(fiber.Config{
		BodyLimit:    config.BodyLimit,
		ErrorHandler: customErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	cleanup := useMiddleware(app, config)
	registerRoutes(app, NewHandlers(deps.Validation, deps.HealthChecker, config.Handler), config)

	return &RouterResult{App: app, Cleanup: cleanup}
}

// useMiddleware installs the middleware chain. Order matters: request IDs
// first so every later stage can log them, rate limiting before CORS.
func useMiddleware(app *fiber.App, config RouterConfig) (cleanup func()) {
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: generateUUID,
	}))
	app.Use(requestContextMiddleware())
	app.Use(structuredLoggingMiddleware())
	app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: logPanic,
	}))
	app.Use(securityHeadersMiddleware())

	cleanup = func() {}
	if config.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		cleanup = limiter.StartCleanupRoutine()
		app.Use(limiter.Middleware())
	}

	if len(config.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(config.CORSOrigins, ","),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-API-Key",
			MaxAge:       86400,
		}))
	}

	return cleanup
}

func registerRoutes(app *fiber.App, handlers *Handlers, config RouterConfig) {
	v1 := app.Group("/v1")
	v1.Post("/validate", handlers.ValidateHandler)
	v1.Post("/validate/raw", handlers.ValidateRawHandler)
	v1.Get("/rules", handlers.RulesHandler)
	v1.Get("/schema", handlers.SchemaHandler)
	if config.ReloadEnabled {
		v1.Post("/rules/reload", handlers.ReloadHandler)
	}

	app.Get("/health", handlers.HealthHandler)
	app.Get("/metrics", handlers.MetricsHandler)
	app.Get("/swagger/*", swagger.HandlerDefault)
}

// customErrorHandler renders errors that escape the handlers in the error envelope
func customErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
		message = e.Message
	}
	if status == fiber.StatusRequestEntityTooLarge {
		message = "Request payload too large"
	}

	code, ok := frameworkErrorCodes[status]
	if !ok {
		code = domain.ErrInternal
	}

	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func generateUUID() string {
	return uuid.New().String()
}

func logPanic(c *fiber.Ctx, e any) {
	log.Error().
		Str("request_id", requestIDOf(c)).
		Interface("panic", e).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("ip", c.IP()).
		Msg("Panic recovered")
}

// requestContextMiddleware copies the request ID into the user context so
// AppError.WithContext picks it up
func requestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid := requestIDOf(c); rid != "" {
			c.SetUserContext(context.WithValue(c.UserContext(), domain.RequestIDKey, rid))
		}
		return c.Next()
	}
}

// structuredLoggingMiddleware logs one event per request, with the
// validation outcome when the request validated a manifest
func structuredLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}

		requestID := requestIDOf(c)
		if requestID == "" {
			requestID = "unknown"
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Str("user_agent", c.Get(fiber.HeaderUserAgent)).
			Int("body_size", len(c.Body())).
			Int("response_size", len(c.Response().Body()))

		if v, ok := c.Locals(localValidation).(validationLog); ok {
			event.
				Bool("valid", v.valid).
				Int("errors", v.errors).
				Int("warnings", v.warnings).
				Bool("cache_hit", v.cacheHit)
		}

		event.Msg("HTTP request processed")
		return err
	}
}

func securityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, h := range securityHeaders {
			c.Set(h[0], h[1])
		}
		return c.Next()
	}
}
