package config

const EnvPrefix = "POSRELAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	QueueBackendRedis    = "redis"
	QueueBackendPostgres = "postgres"
)

const (
	EnvAppEnv       = "POSRELAY_APP_ENV"
	EnvPort         = "POSRELAY_APP_PORT"
	EnvLogLevel     = "POSRELAY_LOG_LEVEL"
	EnvRedisURL     = "POSRELAY_REDIS_URL"
	EnvRedisAddr    = "POSRELAY_REDIS_ADDR"
	EnvDBDSN        = "POSRELAY_DB_DSN"
	EnvQueueBackend = "POSRELAY_QUEUE_BACKEND"
	EnvDrainTimeout = "POSRELAY_DRAIN_TIMEOUT"
	EnvKeyNamespace = "POSRELAY_KEY_NAMESPACE"
	EnvCORSOrigins  = "POSRELAY_CORS_ORIGINS"
)
