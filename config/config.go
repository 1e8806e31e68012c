package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"realestate-app/internal/infra/filestore"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	DBURL      string
	JWTSecret  string
	JWTTTL     time.Duration
	CORSOrigin string
	GinMode    string

	LogLevel  string
	LogFormat string // "text" | "json" | "color"

	// photo storage
	PhotoStore           string // "local" | "s3"
	UploadDir            string
	S3                   filestore.S3Config
	AllowHEIC            bool
	PhotoReadConcurrency int

	MaxPageSize       int
	AllowRegistration bool

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func LoadEnv() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		DBURL:      mustEnv("DB_URL"),
		JWTSecret:  mustEnv("JWT_SECRET"),
		JWTTTL:     getDuration("JWT_TTL", 12*time.Hour),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		GinMode:    getEnv("GIN_MODE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		PhotoStore:           getEnv("PHOTO_STORE", "local"),
		UploadDir:            getEnv("UPLOAD_DIR", "upload"),
		AllowHEIC:            getBool("ALLOW_HEIC", false),
		PhotoReadConcurrency: getInt("PHOTO_READ_CONCURRENCY", 8),

		MaxPageSize:       getInt("MAX_PAGE_SIZE", 100),
		AllowRegistration: getBool("ALLOW_REGISTRATION", true),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
	}

	if cfg.PhotoStore == "s3" {
		cfg.S3 = filestore.S3Config{
			Bucket:          mustEnv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     mustEnv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: mustEnv("S3_SECRET_ACCESS_KEY"),
		}
	}

	if cfg.GoogleEnabled() {
		cfg.GoogleClientSecret = mustEnv("GOOGLE_CLIENT_SECRET")
		cfg.GoogleRedirectURL = mustEnv("GOOGLE_REDIRECT_URL")
	}

	return cfg
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("Invalid value for %s: %q (want a positive integer)", key, v)
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q (want true/false)", key, v)
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q (want a duration like 12h)", key, v)
	}
	return d
}
