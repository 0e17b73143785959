package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// Ledger configuration
	Ledger LedgerConfig `mapstructure:"ledger"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`

	// Monitor configuration
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Throttle configuration
	Throttle ThrottleConfig `mapstructure:"throttle"`

	// Recovery configuration
	Recovery RecoveryConfig `mapstructure:"recovery"`

	// Application configuration
	App AppConfig `mapstructure:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string `mapstructure:"port"`

	// ShutdownTimeout is the timeout for server shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig holds persistent store connection configuration
type StoreConfig struct {
	// URI is the store connection string
	URI string `mapstructure:"uri"`

	// Database is the database name
	Database string `mapstructure:"database"`

	// MinPoolSize is the minimum connection pool size
	MinPoolSize uint64 `mapstructure:"min_pool_size"`

	// MaxPoolSize is the maximum connection pool size
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`

	// ServerSelectionTimeout bounds server discovery during connect
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout"`
}

// LedgerConfig holds ledger RPC endpoint configuration
type LedgerConfig struct {
	// Endpoint is the JSON-RPC endpoint URL
	Endpoint string `mapstructure:"endpoint"`

	// RequestTimeout is the timeout for individual RPC requests
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RetryConfig holds store connect retry configuration
type RetryConfig struct {
	// MaxAttempts is the total number of connect attempts before giving up
	MaxAttempts int `mapstructure:"max_attempts"`

	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration `mapstructure:"base_delay"`

	// WaitTimeout bounds how long a caller waits on an in-flight attempt
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// MonitorConfig holds health monitor configuration
type MonitorConfig struct {
	// ProbeInterval is the period between health check cycles
	ProbeInterval time.Duration `mapstructure:"probe_interval"`

	// ProbeTimeout bounds each individual probe
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// ThrottleConfig holds ledger throttler configuration
type ThrottleConfig struct {
	// MaxOpsPerMinute is the default per-window operation ceiling
	MaxOpsPerMinute int `mapstructure:"max_ops_per_minute"`

	// MaxBatchSize is the default single-request batch ceiling
	MaxBatchSize int `mapstructure:"max_batch_size"`

	// Overrides sets per-operation-type ceilings
	Overrides map[string]ThrottleOverrideConfig `mapstructure:"overrides"`
}

// ThrottleOverrideConfig holds a per-operation-type ceiling override.
// A zero field keeps the default.
type ThrottleOverrideConfig struct {
	MaxOpsPerMinute int `mapstructure:"max_ops_per_minute"`
	MaxBatchSize    int `mapstructure:"max_batch_size"`
}

// RecoveryConfig holds recovery coordinator configuration
type RecoveryConfig struct {
	// ConfirmAttempts is how many verification probes may run per recovery
	ConfirmAttempts int `mapstructure:"confirm_attempts"`

	// ConfirmDelay is the pause between verification probes
	ConfirmDelay time.Duration `mapstructure:"confirm_delay"`
}

// AppConfig holds application configuration
type AppConfig struct {
	// Component is the name of the component
	Component string `mapstructure:"component"`

	// LogLevel is the log level
	LogLevel string `mapstructure:"log_level"`
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure paths and file types
	configureViper(v)

	// Read configs file
	if err := readConfigs(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configs: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// configureViper sets up Viper configuration paths and types
func configureViper(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/web3todo/")

	// Enable environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("WEB3TODO")
}

// readConfigs attempts to read the configuration file
func readConfigs(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Only return error if it's not a "configs file not found" error
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read configs file: %w", err)
		}
		// Otherwise, continue with defaults and environment variables
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	// Validate server configuration
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	// Validate store configuration
	if cfg.Store.URI == "" {
		return fmt.Errorf("store.uri is required")
	}
	if cfg.Store.Database == "" {
		return fmt.Errorf("store.database is required")
	}
	if cfg.Store.MinPoolSize > cfg.Store.MaxPoolSize {
		return fmt.Errorf("store.min_pool_size must not exceed store.max_pool_size")
	}

	// Validate ledger configuration
	if cfg.Ledger.Endpoint == "" {
		return fmt.Errorf("ledger.endpoint is required")
	}

	// Validate retry configuration
	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if cfg.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive")
	}

	// Validate monitor configuration
	if cfg.Monitor.ProbeInterval <= 0 {
		return fmt.Errorf("monitor.probe_interval must be positive")
	}
	if cfg.Monitor.ProbeTimeout <= 0 {
		return fmt.Errorf("monitor.probe_timeout must be positive")
	}

	// Validate throttle configuration
	if cfg.Throttle.MaxOpsPerMinute <= 0 {
		return fmt.Errorf("throttle.max_ops_per_minute must be positive")
	}
	if cfg.Throttle.MaxBatchSize <= 0 {
		return fmt.Errorf("throttle.max_batch_size must be positive")
	}

	// Validate recovery configuration
	if cfg.Recovery.ConfirmAttempts <= 0 {
		return fmt.Errorf("recovery.confirm_attempts must be positive")
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Store defaults
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "web3todo")
	v.SetDefault("store.min_pool_size", 5)
	v.SetDefault("store.max_pool_size", 20)
	v.SetDefault("store.server_selection_timeout", 5*time.Second)

	// Ledger defaults
	v.SetDefault("ledger.endpoint", "http://localhost:8545")
	v.SetDefault("ledger.request_timeout", 10*time.Second)

	// Retry defaults
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", 1*time.Second)
	v.SetDefault("retry.wait_timeout", 30*time.Second)

	// Monitor defaults
	v.SetDefault("monitor.probe_interval", 30*time.Second)
	v.SetDefault("monitor.probe_timeout", 5*time.Second)

	// Throttle defaults
	v.SetDefault("throttle.max_ops_per_minute", 60)
	v.SetDefault("throttle.max_batch_size", 50)

	// Recovery defaults
	v.SetDefault("recovery.confirm_attempts", 2)
	v.SetDefault("recovery.confirm_delay", 500*time.Millisecond)

	// App defaults
	v.SetDefault("app.component", "web3todo-coordinator")
	v.SetDefault("app.log_level", "info")
}
