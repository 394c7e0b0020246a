package config

import (
	"os"
	"time"

	"adaptivepool/pkg/logger"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Pool     PoolConfig     `yaml:"pool"`
	Provider ProviderConfig `yaml:"provider"`
	Logger   logger.Config  `yaml:"logger"`
}

// ProviderConfig selects and configures the backing resource provider.
type ProviderConfig struct {
	Kind     string         `yaml:"kind"` // postgres, redis
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PostgresConfig PostgreSQL provider configuration
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig Redis provider configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PoolConfig adaptive connection pool configuration.
// Durations are expressed in seconds; use the accessor methods to obtain
// time.Duration values.
type PoolConfig struct {
	// Basic pool settings
	MaxConnections     int `yaml:"max_connections"`
	MinConnections     int `yaml:"min_connections"`
	AcquireTimeoutSecs int `yaml:"acquire_timeout_secs"`
	IdleTimeoutSecs    int `yaml:"idle_timeout_secs"`
	MaxLifetimeSecs    int `yaml:"max_lifetime_secs"`

	// Statement caching
	StatementCacheCapacity   int  `yaml:"statement_cache_capacity"`
	EnablePreparedStatements bool `yaml:"enable_prepared_statements"`

	// Health check settings
	HealthCheckIntervalSecs int `yaml:"health_check_interval_secs"`
	HealthCheckTimeoutSecs  int `yaml:"health_check_timeout_secs"`
	MaxFailedHealthChecks   int `yaml:"max_failed_health_checks"`

	// Load-based sizing
	EnableDynamicSizing  bool    `yaml:"enable_dynamic_sizing"`
	LoadThresholdHigh    float64 `yaml:"load_threshold_high"`  // 0.8 = 80% utilization
	LoadThresholdLow     float64 `yaml:"load_threshold_low"`   // 0.3 = 30% utilization
	ScaleUpFactor        float64 `yaml:"scale_up_factor"`      // 1.2 = 20% increase
	ScaleDownFactor      float64 `yaml:"scale_down_factor"`    // 0.9 = 10% decrease
	MinScaleIntervalSecs int     `yaml:"min_scale_interval_secs"`

	// Connection lifecycle
	EnableConnectionValidation bool     `yaml:"enable_connection_validation"`
	ValidationQuery            string   `yaml:"validation_query"`
	ConnectionWarmupQueries    []string `yaml:"connection_warmup_queries"`
	EnableConnectionRecycling  bool     `yaml:"enable_connection_recycling"`
	RecycleThresholdQueries    int64    `yaml:"recycle_threshold_queries"`
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:     100,
		MinConnections:     20,
		AcquireTimeoutSecs: 30,
		IdleTimeoutSecs:    600,
		MaxLifetimeSecs:    3600,

		StatementCacheCapacity:   2000,
		EnablePreparedStatements: true,

		HealthCheckIntervalSecs: 30,
		HealthCheckTimeoutSecs:  5,
		MaxFailedHealthChecks:   3,

		EnableDynamicSizing:  true,
		LoadThresholdHigh:    0.8,
		LoadThresholdLow:     0.3,
		ScaleUpFactor:        1.2,
		ScaleDownFactor:      0.9,
		MinScaleIntervalSecs: 60,

		EnableConnectionValidation: true,
		ValidationQuery:            "SELECT 1",
		ConnectionWarmupQueries: []string{
			"SET application_name = 'adaptivepool'",
			"SET statement_timeout = '30s'",
			"SET lock_timeout = '10s'",
		},
		EnableConnectionRecycling: true,
		RecycleThresholdQueries:   10000,
	}
}

// AcquireTimeout returns the acquire timeout as a duration.
func (c PoolConfig) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutSecs) * time.Second
}

// IdleTimeout returns the idle timeout as a duration.
func (c PoolConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}

// MaxLifetime returns the max connection lifetime as a duration.
func (c PoolConfig) MaxLifetime() time.Duration {
	return time.Duration(c.MaxLifetimeSecs) * time.Second
}

// HealthCheckInterval returns the health check interval as a duration.
func (c PoolConfig) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalSecs) * time.Second
}

// HealthCheckTimeout returns the health check timeout as a duration.
func (c PoolConfig) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutSecs) * time.Second
}

// MinScaleInterval returns the scaling cooldown as a duration.
func (c PoolConfig) MinScaleInterval() time.Duration {
	return time.Duration(c.MinScaleIntervalSecs) * time.Second
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	validateAndApplyDefaults(&cfg)

	GlobalConfig = &cfg
	return nil
}

// validateAndApplyDefaults replaces invalid pool settings with defaults so a
// bad configuration file degrades to known-good behavior instead of failing.
func validateAndApplyDefaults(cfg *Config) {
	defaults := DefaultPoolConfig()
	p := &cfg.Pool

	if p.MaxConnections <= 0 {
		logger.Warnf("invalid max_connections %d, using default %d", p.MaxConnections, defaults.MaxConnections)
		p.MaxConnections = defaults.MaxConnections
	}
	if p.MinConnections <= 0 {
		logger.Warnf("invalid min_connections %d, using default %d", p.MinConnections, defaults.MinConnections)
		p.MinConnections = defaults.MinConnections
	}
	if p.MinConnections > p.MaxConnections {
		logger.Warnf("min_connections %d exceeds max_connections %d, using defaults %d/%d",
			p.MinConnections, p.MaxConnections, defaults.MinConnections, defaults.MaxConnections)
		p.MinConnections = defaults.MinConnections
		p.MaxConnections = defaults.MaxConnections
	}
	if p.AcquireTimeoutSecs <= 0 {
		logger.Warnf("invalid acquire_timeout_secs %d, using default %d", p.AcquireTimeoutSecs, defaults.AcquireTimeoutSecs)
		p.AcquireTimeoutSecs = defaults.AcquireTimeoutSecs
	}
	if p.IdleTimeoutSecs <= 0 {
		p.IdleTimeoutSecs = defaults.IdleTimeoutSecs
	}
	if p.MaxLifetimeSecs <= 0 {
		p.MaxLifetimeSecs = defaults.MaxLifetimeSecs
	}
	if p.StatementCacheCapacity <= 0 {
		logger.Warnf("invalid statement_cache_capacity %d, using default %d", p.StatementCacheCapacity, defaults.StatementCacheCapacity)
		p.StatementCacheCapacity = defaults.StatementCacheCapacity
	}
	if p.HealthCheckIntervalSecs <= 0 {
		p.HealthCheckIntervalSecs = defaults.HealthCheckIntervalSecs
	}
	if p.HealthCheckTimeoutSecs <= 0 {
		p.HealthCheckTimeoutSecs = defaults.HealthCheckTimeoutSecs
	}
	if p.MaxFailedHealthChecks <= 0 {
		p.MaxFailedHealthChecks = defaults.MaxFailedHealthChecks
	}
	if p.LoadThresholdHigh <= 0 || p.LoadThresholdHigh > 1 {
		logger.Warnf("invalid load_threshold_high %.2f, using default %.2f", p.LoadThresholdHigh, defaults.LoadThresholdHigh)
		p.LoadThresholdHigh = defaults.LoadThresholdHigh
	}
	if p.LoadThresholdLow <= 0 || p.LoadThresholdLow >= p.LoadThresholdHigh {
		logger.Warnf("invalid load_threshold_low %.2f, using default %.2f", p.LoadThresholdLow, defaults.LoadThresholdLow)
		p.LoadThresholdLow = defaults.LoadThresholdLow
		if p.LoadThresholdLow >= p.LoadThresholdHigh {
			// The default low does not fit under a small custom high;
			// fall back to the default band entirely.
			p.LoadThresholdHigh = defaults.LoadThresholdHigh
		}
	}
	if p.ScaleUpFactor <= 1 {
		logger.Warnf("invalid scale_up_factor %.2f, using default %.2f", p.ScaleUpFactor, defaults.ScaleUpFactor)
		p.ScaleUpFactor = defaults.ScaleUpFactor
	}
	if p.ScaleDownFactor <= 0 || p.ScaleDownFactor >= 1 {
		logger.Warnf("invalid scale_down_factor %.2f, using default %.2f", p.ScaleDownFactor, defaults.ScaleDownFactor)
		p.ScaleDownFactor = defaults.ScaleDownFactor
	}
	if p.MinScaleIntervalSecs <= 0 {
		p.MinScaleIntervalSecs = defaults.MinScaleIntervalSecs
	}
	if p.ValidationQuery == "" {
		p.ValidationQuery = defaults.ValidationQuery
	}
	if p.RecycleThresholdQueries <= 0 {
		p.RecycleThresholdQueries = defaults.RecycleThresholdQueries
	}
}
