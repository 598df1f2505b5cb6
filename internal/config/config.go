package config

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	DatabaseURL string

	// AccessTokenSecret and RefreshTokenSecret are the decoded HMAC key
	// material for the two token classes. They must be configured
	// independently; the loader rejects identical secrets.
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KakaoClientID     string
	KakaoClientSecret string
	KakaoAuthURL      string
	KakaoTokenURL     string
	KakaoProfileURL   string
	KakaoRedirectURI  string

	AdminEmail    string
	AdminPassword string

	ServiceName       string
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
// Missing or malformed signing secrets are a fatal startup error.
func Load() (Config, error) {
	_ = godotenv.Load()

	accessSecret, err := requiredSecret("JWT_ACCESS_SECRET")
	if err != nil {
		return Config{}, err
	}
	refreshSecret, err := requiredSecret("JWT_REFRESH_SECRET")
	if err != nil {
		return Config{}, err
	}
	if subtle.ConstantTimeCompare(accessSecret, refreshSecret) == 1 {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		AccessTokenSecret:    accessSecret,
		RefreshTokenSecret:   refreshSecret,
		AccessTokenTTL:       getDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL:      getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		KakaoClientID:        os.Getenv("KAKAO_CLIENT_ID"),
		KakaoClientSecret:    os.Getenv("KAKAO_CLIENT_SECRET"),
		KakaoAuthURL:         getEnv("KAKAO_AUTH_URL", "https://kauth.kakao.com/oauth/authorize"),
		KakaoTokenURL:        getEnv("KAKAO_TOKEN_URL", "https://kauth.kakao.com/oauth/token"),
		KakaoProfileURL:      getEnv("KAKAO_PROFILE_URL", "https://kapi.kakao.com/v2/user/me"),
		KakaoRedirectURI:     os.Getenv("KAKAO_REDIRECT_URI"),
		AdminEmail:           strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		ServiceName:          getEnv("SERVICE_NAME", "menuhub-auth"),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func requiredSecret(key string) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be base64-encoded: %w", key, err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("%s must decode to at least 32 bytes", key)
	}
	return decoded, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
