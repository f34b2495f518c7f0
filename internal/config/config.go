package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; nested structs group the optional subsystems.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	DBMigrate bool   // apply embedded migrations on startup
	JWTSecret string // secret used to verify bearer tokens

	Log       LogConfig
	Lock      LockConfig
	Queue     QueueConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// LockConfig tunes the per-exam seating lock.
type LockConfig struct {
	TTL  time.Duration // expiry of a Redis lock whose holder died
	Wait time.Duration // how long a run waits for a busy exam
}

// QueueConfig configures the seating event broker.
type QueueConfig struct {
	URL             string // RabbitMQ URL; empty disables publishing
	ConsumerEnabled bool   // run the audit log consumer in-process
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; real environment variables win over it.  Missing required
// variables are fatal.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		DBMigrate: envBool("DB_MIGRATE", false),
		JWTSecret: must("JWT_SECRET"),
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
		},
		Lock: LockConfig{
			TTL:  envDur("SEATING_LOCK_TTL", 30*time.Second),
			Wait: envDur("SEATING_LOCK_WAIT", 5*time.Second),
		},
		Queue: QueueConfig{
			URL:             envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
			ConsumerEnabled: envBool("SEATING_CONSUMER_ENABLED", false),
		},
		Cache:     LoadCacheConfig(),
		RateLimit: LoadRateLimitConfig(),
		Redis:     LoadRedisConfig(),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
