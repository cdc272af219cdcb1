package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server         ServerConfig
	Mongo          MongoConfig
	Auth           AuthConfig
	CORS           CORSConfig
	RateLimit      RateLimitConfig
	Upload         UploadConfig
	Logging        LoggingConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

type ServerConfig struct {
	Host        string
	Port        int
	MaxBodySize int64
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	CookieName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	MaxRequests       int
	Window            time.Duration
	TrustedProxyCIDRs []string
}

// UploadConfig selects the upload backend at startup. Driver is "local" or "s3".
type UploadConfig struct {
	Driver        string
	LocalDir      string
	AWSAccessKey  string
	AWSSecretKey  string
	AWSRegion     string
	S3Bucket      string
	CloudFrontID  string
	S3EndpointURL string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AdminBootstrapConfig struct {
	Name     string
	Email    string
	Password string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("PORT", 5000),
			MaxBodySize: int64(getEnvInt("MAX_BODY_SIZE_MB", 5)) << 20,
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017/gatherguru"),
			Database: getEnv("MONGO_DATABASE", "gatherguru"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			JWTExpiry:  time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
			CookieName: "token",
		},
		CORS: CORSConfig{
			AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:       getEnvInt("RATE_LIMIT_MAX", 50),
			Window:            time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute,
			TrustedProxyCIDRs: splitAndTrim(getEnv("TRUSTED_PROXY_CIDRS", "")),
		},
		Upload: UploadConfig{
			Driver:        strings.ToLower(getEnv("UPLOAD_DRIVER", "local")),
			LocalDir:      getEnv("UPLOAD_DIR", "uploads"),
			AWSAccessKey:  getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
			S3Bucket:      getEnv("S3_BUCKET_NAME", "gatherguru-uploads"),
			CloudFrontID:  getEnv("CLOUDFRONT_DISTRIBUTION_ID", ""),
			S3EndpointURL: getEnv("S3_ENDPOINT_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		AdminBootstrap: AdminBootstrapConfig{
			Name:     getEnv("ADMIN_NAME", ""),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Environment: getEnv("NODE_ENV", "development"),
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Mongo.URI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.Upload.Driver != "local" && cfg.Upload.Driver != "s3" {
		return Config{}, fmt.Errorf("UPLOAD_DRIVER must be \"local\" or \"s3\", got %q", cfg.Upload.Driver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
