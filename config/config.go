package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string
	AppMode    string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// JWTSecret verifies tokens issued by the marketplace identity service.
	// This service never issues tokens itself.
	JWTSecret string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	// Attachment policy
	MaxAttachmentBytes       int64
	MaxAttachmentsPerMessage int

	// Per-minute send quota per participant
	MessageRateLimit  int
	MessageRateWindow time.Duration

	PresenceTTL time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		AppMode:    getEnv("APP_MODE", "debug"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "marketplace_chat"),
		DBPort:     getEnv("DB_PORT", "5432"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		S3Region:     getEnv("S3_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),

		MaxAttachmentBytes:       getEnvAsInt64("MAX_ATTACHMENT_BYTES", 25<<20),
		MaxAttachmentsPerMessage: getEnvAsInt("MAX_ATTACHMENTS_PER_MESSAGE", 5),

		MessageRateLimit:  getEnvAsInt("MESSAGE_RATE_LIMIT", 60),
		MessageRateWindow: time.Duration(getEnvAsInt("MESSAGE_RATE_WINDOW_SEC", 60)) * time.Second,

		PresenceTTL: time.Duration(getEnvAsInt("PRESENCE_TTL_SEC", 300)) * time.Second,
	}
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

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}
