package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the manifest validation service
type Config struct {
	Server struct {
		Port           int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
		ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
		RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2s"`
		BodyLimit      int           `env:"BODY_LIMIT" envDefault:"1048576" validate:"min=1"` // 1MB
	}

	Cache struct {
		Enabled bool `env:"CACHE_ENABLED" envDefault:"true"`
		MaxSize int  `env:"CACHE_MAX_SIZE" envDefault:"1000" validate:"min=10"`
	}

	Rules struct {
		// Directory holding rule document overrides; empty uses the embedded set
		Dir           string `env:"RULES_DIR" validate:"dir_or_empty"`
		ReloadEnabled bool   `env:"RULES_RELOAD_ENABLED" envDefault:"false"`
	}

	Validation struct {
		DefaultListed   bool `env:"DEFAULT_LISTED" envDefault:"false"`
		DefaultPackaged bool `env:"DEFAULT_PACKAGED" envDefault:"false"`
	}

	Security struct {
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," validate:"cors_origins"`
	}

	RateLimit struct {
		Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
		RPS     int  `env:"RATE_LIMIT_RPS" envDefault:"50" validate:"min=1"`
		Burst   int  `env:"RATE_LIMIT_BURST" envDefault:"100" validate:"min=1"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration using struct tags
func Validate(cfg *Config) error {
	validator := validator.New()

	if err := validator.RegisterValidation("cors_origins", validateCORSOrigins); err != nil {
		return fmt.Errorf("failed to register cors_origins validation: %w", err)
	}
	if err := validator.RegisterValidation("dir_or_empty", validateDirOrEmpty); err != nil {
		return fmt.Errorf("failed to register dir_or_empty validation: %w", err)
	}

	if err := validator.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCORSOrigins validates CORS origins format
func validateCORSOrigins(fl validator.FieldLevel) bool {
	origins := fl.Field().Interface().([]string)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return false
		}
	}
	return true
}

// validateDirOrEmpty accepts an empty string or an existing directory
func validateDirOrEmpty(fl validator.FieldLevel) bool {
	dir := fl.Field().String()
	if dir == "" {
		return true
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// validateCustomRules performs additional validation beyond struct tags
func validateCustomRules(cfg *Config) error {
	if cfg.Server.ReadTimeout < time.Millisecond {
		return fmt.Errorf("read timeout must be at least 1ms")
	}
	if cfg.Server.WriteTimeout < time.Millisecond {
		return fmt.Errorf("write timeout must be at least 1ms")
	}
	if cfg.Server.RequestTimeout < time.Millisecond {
		return fmt.Errorf("request timeout must be at least 1ms")
	}
	if cfg.RateLimit.Burst < cfg.RateLimit.RPS {
		return fmt.Errorf("rate limit burst must not be lower than rate limit rps")
	}

	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
			case "cors_origins":
				messages = append(messages, fmt.Sprintf("%s contains invalid origin format", e.Field()))
			case "dir_or_empty":
				messages = append(messages, fmt.Sprintf("%s must be an existing directory", e.Field()))
			default:
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
			}
		}
		return fmt.Errorf("validation errors: %s", strings.Join(messages, "; "))
	}
	return err
}
