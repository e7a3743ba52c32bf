package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	OTLPEndpoint      string
	OTLPProtocol      string
	OtelEnabled       bool
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	AMQP      AMQPConfig
	Metrics   MetricsPushConfig

	ReportOutputDir      string
	PreAuthSweepInterval time.Duration
	SchemeConfigPath     string

	Bootstrap BootstrapConfig
}

// BootstrapConfig describes the administrator created on an empty database.
type BootstrapConfig struct {
	Username string
	Email    string
	Phone    string
	Password string
}

func (c BootstrapConfig) Enabled() bool {
	return c.Username != "" && c.Email != "" && c.Phone != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	Enabled       bool
	WriteRate     float64
	WriteBurst    int
	ReportRate    float64
	ReportBurst   int
	SweepLockTTL  time.Duration
	MetricLockTTL time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "shaadmin"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel:  strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat: strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),

		OTLPEndpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelEnabled:       getenvBool("OTEL_ENABLED", false),
		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "shaadmin"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", ""),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			WriteRate:     getenvFloat("RATE_LIMIT_WRITE_RATE", 5),
			WriteBurst:    getenvInt("RATE_LIMIT_WRITE_BURST", 20),
			ReportRate:    getenvFloat("RATE_LIMIT_REPORT_RATE", 0.2),
			ReportBurst:   getenvInt("RATE_LIMIT_REPORT_BURST", 3),
			SweepLockTTL:  getenvDuration("SWEEP_LOCK_TTL", 2*time.Minute),
			MetricLockTTL: getenvDuration("METRICS_PUSH_LOCK_TTL", time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      strings.TrimSpace(getenv("AMQP_URL", "")),
			Exchange: getenv("AMQP_EXCHANGE", "sha.events"),
		},
		Metrics: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("SCHEME_METRICS_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("SCHEME_METRICS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("SCHEME_METRICS_AUTH_TOKEN", "")),
			Interval:  getenvDuration("SCHEME_METRICS_INTERVAL", 5*time.Minute),
		},

		ReportOutputDir:      getenv("REPORT_OUTPUT_DIR", "./var/reports"),
		PreAuthSweepInterval: getenvDuration("PREAUTH_SWEEP_INTERVAL", 0),
		SchemeConfigPath:     strings.TrimSpace(getenv("SCHEME_CONFIG_PATH", "")),

		Bootstrap: BootstrapConfig{
			Username: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_USERNAME", "")),
			Email:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			Phone:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_PHONE", "")),
			Password: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
