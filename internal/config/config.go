package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlatformCredentials holds one platform's OAuth client credentials.
// A platform with empty credentials is simply not offered; its connect
// flow fails with a configuration error instead of a runtime surprise.
type PlatformCredentials struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether the platform can be offered.
func (c PlatformCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config contains runtime configuration values. It is built once at
// process start and immutable afterwards.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RedirectBaseURL      string
	AppBaseURL           string
	AppRedirectPath      string
	X                    PlatformCredentials
	LinkedIn             PlatformCredentials
	StateSigningSecret   string
	PlatformHTTPTimeout  time.Duration
	ServiceName          string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	redirectBase := strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_BASE_URL"))
	if redirectBase == "" {
		return Config{}, fmt.Errorf("OAUTH_REDIRECT_BASE_URL is required")
	}
	appBase := strings.TrimSpace(os.Getenv("APP_BASE_URL"))
	if appBase == "" {
		return Config{}, fmt.Errorf("APP_BASE_URL is required")
	}

	cfg := Config{
		Environment:     getEnv("APP_ENV", "development"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		RedirectBaseURL: strings.TrimRight(redirectBase, "/"),
		AppBaseURL:      strings.TrimRight(appBase, "/"),
		AppRedirectPath: getEnv("APP_REDIRECT_PATH", "/dashboard/settings"),
		X: PlatformCredentials{
			ClientID:     strings.TrimSpace(os.Getenv("X_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("X_CLIENT_SECRET")),
		},
		LinkedIn: PlatformCredentials{
			ClientID:     strings.TrimSpace(os.Getenv("LINKEDIN_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("LINKEDIN_CLIENT_SECRET")),
		},
		StateSigningSecret:   os.Getenv("STATE_SIGNING_SECRET"),
		PlatformHTTPTimeout:  getDuration("PLATFORM_HTTP_TIMEOUT", 10*time.Second),
		ServiceName:          getEnv("SERVICE_NAME", "sproutline-social-connector"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// Credentials returns the client credentials for a platform key
// ("x" or "linkedin"); ok is false for anything else.
func (c Config) Credentials(platform string) (PlatformCredentials, bool) {
	switch platform {
	case "x":
		return c.X, true
	case "linkedin":
		return c.LinkedIn, true
	default:
		return PlatformCredentials{}, false
	}
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
