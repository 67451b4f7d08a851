package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Redis        RedisConfig
	DB           DBConfig
	Relay        RelayConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Redis.URL == "" && c.Redis.Address == "" {
		return fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	switch c.Relay.Backend() {
	case QueueBackendRedis:
	case QueueBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvQueueBackend, QueueBackendPostgres)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvQueueBackend, c.Relay.QueueBackend)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"POSRELAY_APP_ENV" required:"true"`
	Port         string `envconfig:"POSRELAY_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"POSRELAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSRELAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"POSRELAY_SERVICE_KIND" default:"api"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSRELAY_REDIS_URL"`
	Address      string        `envconfig:"POSRELAY_REDIS_ADDR"`
	Password     string        `envconfig:"POSRELAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSRELAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSRELAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSRELAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSRELAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSRELAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSRELAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN             string        `envconfig:"POSRELAY_DB_DSN"`
	MaxOpenConns    int           `envconfig:"POSRELAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSRELAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSRELAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSRELAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RelayConfig holds the knobs of the point-of-sale relay itself.
type RelayConfig struct {
	KeyNamespace   string        `envconfig:"POSRELAY_KEY_NAMESPACE" default:"relay"`
	QueueBackend   string        `envconfig:"POSRELAY_QUEUE_BACKEND" default:"redis"`
	DrainTimeout   time.Duration `envconfig:"POSRELAY_DRAIN_TIMEOUT" default:"5s"`
	RequestTimeout time.Duration `envconfig:"POSRELAY_REQUEST_TIMEOUT" default:"5s"`
	MaxBodyBytes   int64         `envconfig:"POSRELAY_MAX_BODY_BYTES" default:"1048576"`
	PollRate       int           `envconfig:"POSRELAY_POLL_RATE" default:"10"`
	SupportItems   string        `envconfig:"POSRELAY_SUPPORT_ITEMS" default:"Y"`
	SupportScreens string        `envconfig:"POSRELAY_SUPPORT_SCREENS" default:"Y"`
	IdempotencyTTL time.Duration `envconfig:"POSRELAY_IDEMPOTENCY_TTL" default:"24h"`
	CORSOrigins    []string      `envconfig:"POSRELAY_CORS_ORIGINS" default:"http://localhost:3000"`
}

// Backend returns the normalized queue backend name.
func (r RelayConfig) Backend() string {
	backend := strings.TrimSpace(strings.ToLower(r.QueueBackend))
	if backend == "" {
		return QueueBackendRedis
	}
	return backend
}

type RateLimitConfig struct {
	Window      time.Duration `envconfig:"POSRELAY_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit     int           `envconfig:"POSRELAY_RATE_LIMIT_IP_LIMIT" default:"600"`
	CentreLimit int           `envconfig:"POSRELAY_RATE_LIMIT_CENTRE_LIMIT" default:"1200"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"POSRELAY_CRON_INTERVAL" default:"1m"`
	LockTTL     time.Duration `envconfig:"POSRELAY_CRON_LOCK_TTL" default:"55s"`
	JobTimeout  time.Duration `envconfig:"POSRELAY_CRON_JOB_TIMEOUT" default:"30s"`
	MetricsPort string        `envconfig:"POSRELAY_METRICS_PORT" default:"9090"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POSRELAY_AUTO_MIGRATE" default:"false"`
}
