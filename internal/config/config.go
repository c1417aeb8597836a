package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string

	LogLevel string

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

	Storage StorageConfig
}

// StorageConfig selects and parameterizes the attachment backend.
type StorageConfig struct {
	Backend string // "local" or "s3"

	// local backend
	Root      string
	PublicURL string

	// s3 backend
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Load loads configuration from environment variables and an optional
// .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "commesse"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPPort:    getenv("HTTP_PORT", "4000"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "commesse"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		Storage: StorageConfig{
			Backend:           normalizeBackend(getenv("STORAGE_BACKEND", BackendLocal)),
			Root:              getenv("STORAGE_ROOT", "storage"),
			PublicURL:         getenv("STORAGE_PUBLIC_URL", "/files"),
			S3Endpoint:        strings.TrimSpace(getenv("STORAGE_S3_ENDPOINT", "")),
			S3Region:          getenv("STORAGE_S3_REGION", "eu-south-1"),
			S3Bucket:          strings.TrimSpace(getenv("STORAGE_S3_BUCKET", "")),
			S3AccessKeyID:     strings.TrimSpace(getenv("STORAGE_S3_ACCESS_KEY_ID", "")),
			S3SecretAccessKey: strings.TrimSpace(getenv("STORAGE_S3_SECRET_ACCESS_KEY", "")),
		},
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case BackendS3:
		return BackendS3
	default:
		return BackendLocal
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

// Module wires configuration for the application.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewUploadPolicyHolder,
	),
)
