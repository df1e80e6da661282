package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mozilla/firefox-app-validator-manifest/internal/api"
	"github.com/mozilla/firefox-app-validator-manifest/internal/cache"
	"github.com/mozilla/firefox-app-validator-manifest/internal/config"
	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/health"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/service"

	docs "github.com/mozilla/firefox-app-validator-manifest/docs"
)

// @title Firefox App Manifest Validator API
// @version 1.0
// @description HTTP service that validates Firefox OS web app manifests against the marketplace rules.

// @license.name MPL-2.0
// @license.url https://www.mozilla.org/en-US/MPL/2.0/

// @BasePath /
// @schemes http https

// @tag.name Validation
// @tag.description Manifest validation operations

// @tag.name Rules
// @tag.description Ruleset inspection and reload

// @tag.name System
// @tag.description System health and metrics operations

func main() {
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	flag.Parse()

	if *healthCheck {
		performHealthCheck()
		return
	}

	setupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	log.Info().Msg("Manifest validator starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	docs.SwaggerInfo.Host = os.Getenv("DOMAIN")

	logStartupConfig(cfg)

	router, err := buildApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ruleset")
	}

	app := router.App
	app.Server().ReadTimeout = cfg.Server.ReadTimeout
	app.Server().WriteTimeout = cfg.Server.WriteTimeout

	setupGracefulShutdown(router)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("addr", serverAddr).
		Msg("Starting HTTP server")

	if err := app.Listen(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

// buildApp wires the ruleset, cache, service and health checker into the router
func buildApp(cfg *config.Config) (*api.RouterResult, error) {
	rules, err := ruleset.Load(cfg.Rules.Dir)
	if err != nil {
		return nil, err
	}

	resultCache := newResultCache(cfg)
	svc := service.New(rules, resultCache)
	healthChecker := health.NewSystemHealthChecker(svc, resultCache)

	log.Info().
		Interface("sources", rules.Sources()).
		Msg("Ruleset loaded")

	return api.SetupRouter(api.RouterDependencies{
		Validation:    svc,
		HealthChecker: healthChecker,
	}, routerConfig(cfg)), nil
}

// newResultCache returns nil when caching is disabled
func newResultCache(cfg *config.Config) domain.ResultCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.NewLRUCache(cfg.Cache.MaxSize)
}

func routerConfig(cfg *config.Config) api.RouterConfig {
	rc := api.RouterConfig{
		CORSOrigins:   cfg.Security.CORSOrigins,
		BodyLimit:     cfg.Server.BodyLimit,
		ReloadEnabled: cfg.Rules.ReloadEnabled,
		Handler: api.HandlerConfig{
			Defaults: domain.Options{
				Listed:   cfg.Validation.DefaultListed,
				Packaged: cfg.Validation.DefaultPackaged,
			},
			RequestTimeout: cfg.Server.RequestTimeout,
			RulesDir:       cfg.Rules.Dir,
		},
	}
	if cfg.RateLimit.Enabled {
		rc.RateLimitRPS = cfg.RateLimit.RPS
		rc.RateLimitBurst = cfg.RateLimit.Burst
	}
	return rc
}

func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func logStartupConfig(cfg *config.Config) {
	log.Info().
		Int("server_port", cfg.Server.Port).
		Dur("server_read_timeout", cfg.Server.ReadTimeout).
		Dur("server_write_timeout", cfg.Server.WriteTimeout).
		Dur("server_request_timeout", cfg.Server.RequestTimeout).
		Int("server_body_limit", cfg.Server.BodyLimit).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Int("cache_max_size", cfg.Cache.MaxSize).
		Str("rules_dir", cfg.Rules.Dir).
		Bool("rules_reload_enabled", cfg.Rules.ReloadEnabled).
		Bool("validation_default_listed", cfg.Validation.DefaultListed).
		Bool("validation_default_packaged", cfg.Validation.DefaultPackaged).
		Strs("security_cors_origins", cfg.Security.CORSOrigins).
		Bool("rate_limit_enabled", cfg.RateLimit.Enabled).
		Int("rate_limit_rps", cfg.RateLimit.RPS).
		Int("rate_limit_burst", cfg.RateLimit.Burst).
		Str("logging_level", cfg.Logging.Level).
		Str("logging_format", cfg.Logging.Format).
		Msg("Configuration loaded successfully")
}

func setupGracefulShutdown(router *api.RouterResult) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		log.Info().Msg("Received shutdown signal, initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info().Msg("Stopping HTTP server...")
		if err := router.App.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP server shutdown")
		}

		router.Cleanup()

		log.Info().Msg("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func performHealthCheck() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{
		Timeout: 3 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
