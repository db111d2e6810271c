package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	ClickModeDirect = "direct"
	ClickModeNATS   = "nats"

	// DefaultSalt keeps local runs working without configuration. It is
	// rejected outside development.
	DefaultSalt = "default-salt"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Shortener  ShortenerConfig  `mapstructure:"shortener"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Clicks     ClicksConfig     `mapstructure:"clicks"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Env         string `mapstructure:"env" validate:"oneof=development production"`
	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding" validate:"omitempty,oneof=json console"`
	// LogFile, when set, also writes JSON logs to a rotated file.
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups int    `mapstructure:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" validate:"gte=0"`
}

// IsDevelopment reports whether the process runs outside production.
func (c AppConfig) IsDevelopment() bool {
	return c.Env != EnvProduction
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ShortenerConfig holds the two encoder parameters. Both are fixed for the
// lifetime of the process; changing either invalidates every issued code.
type ShortenerConfig struct {
	Salt      string `mapstructure:"salt"`
	MinLength int    `mapstructure:"min_length" validate:"gte=0"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	AbsoluteTTL     time.Duration `mapstructure:"absolute_ttl" validate:"gt=0"`
	SlidingTTL      time.Duration `mapstructure:"sliding_ttl" validate:"gte=0"`
	NegativeTTL     time.Duration `mapstructure:"negative_ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
}

type ClicksConfig struct {
	Mode    string        `mapstructure:"mode" validate:"oneof=direct nats"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type PostgresConfig struct {
	Host              string        `mapstructure:"host"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Port              int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	SSLMode           string        `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32         `mapstructure:"max_conns" validate:"gte=0"`
	MinConns          int32         `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" validate:"gte=0"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" validate:"gte=0"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" validate:"gte=0"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gte=0"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"gte=0,lte=65535"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests" validate:"gte=0"`
	Window      time.Duration `mapstructure:"window" validate:"gte=0"`
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Cache.Backend == CacheBackendRedis || c.RateLimit.Enabled
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !c.App.IsDevelopment() && (c.Shortener.Salt == "" || c.Shortener.Salt == DefaultSalt) {
		return errors.New("config: shortener.salt must be set in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_max_size_mb", 100)
	v.SetDefault("app.log_max_backups", 5)
	v.SetDefault("app.log_max_age_days", 7)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", time.Minute)

	v.SetDefault("shortener.salt", DefaultSalt)
	v.SetDefault("shortener.min_length", 7)

	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.key_prefix", "short_url:")
	v.SetDefault("cache.absolute_ttl", 5*time.Minute)
	v.SetDefault("cache.sliding_ttl", 2*time.Minute)
	v.SetDefault("cache.negative_ttl", 30*time.Second)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("clicks.mode", ClickModeDirect)
	v.SetDefault("clicks.timeout", 5*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conn_lifetime", 5*time.Minute)
	v.SetDefault("postgres.connect_timeout", 5*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.name", "shorturl")
	v.SetDefault("nats.connect_timeout", 5*time.Second)

	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.log_level", "LOG_LEVEL")
	v.BindEnv("app.log_file", "LOG_FILE")

	v.BindEnv("shortener.salt", "SHORTENER_SALT")
	v.BindEnv("shortener.min_length", "SHORTENER_MIN_LENGTH")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.enabled", "PROM_ENABLED")
	v.BindEnv("prometheus.port", "PROM_PORT")
}
