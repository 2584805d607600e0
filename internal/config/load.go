package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from the config file, using the MEDIAKIT_ prefix
// with underscores for nesting (e.g. MEDIAKIT_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment carries the
		// required settings in deployment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MEDIAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the documented defaults for every setting that has
// one. Secrets (database URL, JWT secret, bucket) have no defaults and must
// be supplied.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	// Registered with empty defaults so AutomaticEnv can bind them; the
	// validator enforces presence.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.signed_url_lifetime_seconds", 900)
	v.SetDefault("storage.signed_url_cache_fraction", 0.9)

	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.success_threshold", 3)
	v.SetDefault("resilience.breaker.recovery_timeout_seconds", 60)
	v.SetDefault("resilience.breaker.call_timeout_seconds", 30)

	v.SetDefault("resilience.pool.min_size", 2)
	v.SetDefault("resilience.pool.max_size", 10)
	v.SetDefault("resilience.pool.acquire_timeout_seconds", 5)
	v.SetDefault("resilience.pool.validation_window_seconds", 30)

	v.SetDefault("resilience.queue.workers", 4)
	v.SetDefault("resilience.queue.capacity", 100)
	v.SetDefault("resilience.queue.shutdown_grace_seconds", 30)

	v.SetDefault("resilience.retry_preset", "default")
}
