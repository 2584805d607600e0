package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
	Resilience ResilienceConfig `mapstructure:"resilience" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port"       validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings. The service verifies bearer
// tokens only; user management lives elsewhere.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// StorageConfig contains object-store settings for asset bytes and
// signed-URL generation.
type StorageConfig struct {
	Bucket string `mapstructure:"bucket" validate:"required"`
	Region string `mapstructure:"region" validate:"required"`

	// Endpoint overrides the S3 endpoint for local development
	// (e.g., MinIO). Empty uses AWS.
	Endpoint string `mapstructure:"endpoint"`

	// SignedURLLifetimeSeconds is the expiry requested from the object
	// store for presigned GET URLs.
	SignedURLLifetimeSeconds int `mapstructure:"signed_url_lifetime_seconds" validate:"required,gt=0"`

	// SignedURLCacheFraction is the fraction of the signed-URL lifetime
	// used as the cache TTL, so the cache never serves a URL the store
	// may already have invalidated.
	SignedURLCacheFraction float64 `mapstructure:"signed_url_cache_fraction" validate:"gt=0,lte=1"`
}

// ResilienceConfig groups per-dependency settings for the concurrency and
// failure-handling layer.
type ResilienceConfig struct {
	Breaker BreakerConfig `mapstructure:"breaker"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Queue   QueueConfig   `mapstructure:"queue"`

	// RetryPreset selects the backoff preset applied to retried I/O:
	// default, aggressive, or patient.
	RetryPreset string `mapstructure:"retry_preset" validate:"oneof=default aggressive patient"`
}

// BreakerConfig contains circuit breaker thresholds applied to every
// dependency breaker unless overridden in code.
type BreakerConfig struct {
	FailureThreshold       int `mapstructure:"failure_threshold"        validate:"required,gt=0"`
	SuccessThreshold       int `mapstructure:"success_threshold"        validate:"required,gt=0"`
	RecoveryTimeoutSeconds int `mapstructure:"recovery_timeout_seconds" validate:"required,gt=0"`
	CallTimeoutSeconds     int `mapstructure:"call_timeout_seconds"     validate:"required,gt=0"`
}

// PoolConfig contains resource pool sizing settings.
type PoolConfig struct {
	MinSize                 int `mapstructure:"min_size"                   validate:"gte=0"`
	MaxSize                 int `mapstructure:"max_size"                   validate:"required,gt=0"`
	AcquireTimeoutSeconds   int `mapstructure:"acquire_timeout_seconds"    validate:"required,gt=0"`
	ValidationWindowSeconds int `mapstructure:"validation_window_seconds"  validate:"required,gt=0"`
}

// QueueConfig contains task queue sizing settings.
type QueueConfig struct {
	Workers              int `mapstructure:"workers"                validate:"required,gt=0"`
	Capacity             int `mapstructure:"capacity"               validate:"required,gt=0"`
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds" validate:"required,gt=0"`
}
