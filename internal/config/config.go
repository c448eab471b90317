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

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// Lytex payment gateway credentials. Empty client ID disables the
	// gateway and the reconciler sweep.
	LytexBaseURL      string
	LytexClientID     string
	LytexClientSecret string
	LytexTimeout      time.Duration

	// ReconcileInterval drives the background sweep over batches awaiting
	// gateway settlement.
	ReconcileInterval time.Duration

	// DefaultDeviceValueCents is used by the batch builder when the caller
	// does not override the per-device value and no system_configs row
	// exists yet.
	DefaultDeviceValueCents int64

	// LicenseExtension is the activation window granted to every device of
	// a confirmed batch.
	LicenseExtension time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "licenza"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "licenza"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		LytexBaseURL:      getenv("LYTEX_BASE_URL", "https://api.lytex.com.br"),
		LytexClientID:     strings.TrimSpace(getenv("LYTEX_CLIENT_ID", "")),
		LytexClientSecret: strings.TrimSpace(getenv("LYTEX_CLIENT_SECRET", "")),
		LytexTimeout:      getenvDuration("LYTEX_TIMEOUT", 10*time.Second),

		ReconcileInterval: getenvDuration("RECONCILE_INTERVAL", time.Minute),

		DefaultDeviceValueCents: getenvInt64("DEFAULT_DEVICE_VALUE_CENTS", 3000),
		LicenseExtension:        getenvDuration("LICENSE_EXTENSION", 30*24*time.Hour),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
