package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FileCleanupQueueName   string
	FileCleanupMaxAttempts int

	GCSBucket          string
	GCSCredentialsFile string
	SignedURLTTL       time.Duration
	MaxUploadBytes     int64
}

var AppConfig *Config

// Load reads .env (if present) and the process environment into AppConfig.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	AppConfig = FromEnv()
	return AppConfig
}

// FromEnv builds a Config from the current environment without touching AppConfig.
func FromEnv() *Config {
	cfg := &Config{
		APIPort:                getEnv("API_PORT", "8080"),
		JWTKey:                 []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                 time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "user"),
		DBPassword:             getEnv("DB_PASSWORD", "password"),
		DBName:                 getEnv("DB_NAME", "vote_zone_db"),
		DBSslMode:              getEnv("DB_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		FileCleanupQueueName:   getEnv("FILE_CLEANUP_QUEUE_NAME", "file_cleanup_queue"),
		FileCleanupMaxAttempts: getEnvAsInt("FILE_CLEANUP_MAX_ATTEMPTS", 5),
		GCSBucket:              getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile:     getEnv("GCS_CREDENTIALS_FILE", ""),
		SignedURLTTL:           time.Duration(getEnvAsInt("SIGNED_URL_TTL_MINUTES", 15)) * time.Minute,
		MaxUploadBytes:         int64(getEnvAsInt("MAX_UPLOAD_BYTES", 50<<20)),
	}

	// DATABASE_URL wins over the individual DB_* settings.
	if url := getEnv("DATABASE_URL", ""); url != "" {
		cfg.DBConnStr = url
	} else {
		cfg.DBConnStr = "host=" + cfg.DBHost +
			" port=" + cfg.DBPort +
			" user=" + cfg.DBUser +
			" password=" + cfg.DBPassword +
			" dbname=" + cfg.DBName +
			" sslmode=" + cfg.DBSslMode
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
