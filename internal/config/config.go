// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppSecret string

	// PublicBaseURL is the browser-reachable base of this service,
	// used to build local-mode download and share links.
	PublicBaseURL string

	// Remote object storage (S3-compatible: AWS S3, MinIO, ...).
	// When the first four values are not all present, or the bucket does
	// not answer a connectivity check, the service falls back to local
	// filesystem storage.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	S3Endpoint         string
	S3UseSSL           bool

	// Local fallback storage
	LocalUploadDir string

	// Link validity windows
	DownloadURLTTL time.Duration
	ShareURLTTL    time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	port := getEnv("PORT", "8080")

	return &Config{
		Port:      port,
		AppSecret: getEnv("APP_SECRET", "change_me_in_production"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),

		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("S3_BUCKET_NAME"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
		S3UseSSL:           getEnv("S3_USE_SSL", "true") == "true",

		LocalUploadDir: getEnv("LOCAL_UPLOAD_DIR", "uploads"),

		DownloadURLTTL: getDuration("DOWNLOAD_URL_TTL", 15*time.Minute),
		ShareURLTTL:    getDuration("SHARE_URL_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
