package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	UploadDir      string
	Workers        int
	QueueSize      int
	ExtractTimeout time.Duration
	MaxUploadMB    int
	OCRLanguages   []string
	LogLevel       string
	LogFormat      string
	CorsOrigins    []string
	ClamdAddress   string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		Workers:        getEnvInt("WORKERS", runtime.NumCPU()),
		QueueSize:      getEnvInt("QUEUE_SIZE", 64),
		ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", 5*time.Minute),
		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 50),
		OCRLanguages:   getEnvList("OCR_LANGUAGES", []string{"eng"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		CorsOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		ClamdAddress:   getEnv("CLAMD_ADDRESS", ""),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", ""),
	}

	if cfg.Workers < 1 {
		log.Printf("WARN: WORKERS=%d must be positive, using 1", cfg.Workers)
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	return cfg
}

// MirrorEnabled reports whether uploads should be copied to S3.
func (c *Config) MirrorEnabled() bool {
	return c.BucketName != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("WARN: %s=%q not a positive duration, using default %s", key, v, def)
		return def
	}
	return d
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
