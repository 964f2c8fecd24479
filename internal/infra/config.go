package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string        `validate:"required,oneof=development staging production test"`
	Port             string        `validate:"required,numeric"`
	APIURL           string        `validate:"required,url"`
	TransformTimeout time.Duration `validate:"gt=0"`
	Theme            string        `validate:"required,oneof=purple emerald"`
	DefaultLocale    string        `validate:"required,oneof=en id"`
	MaxUploadBytes   int64         `validate:"gt=0"`
	PreviewMaxEdge   int           `validate:"gte=64,lte=4096"`
	SessionTTL       time.Duration `validate:"gte=1m"`
	SessionCookie    string        `validate:"required,max=64,excludesall=0x2C;="`
	CookieSecure     bool
	RedisURL         string   `validate:"omitempty,url"`
	CORSOrigins      []string `validate:"dive,required"`
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int `validate:"gt=0"`
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		APIURL:           strings.TrimRight(getEnv("API_URL", "http://localhost:5001"), "/"),
		TransformTimeout: time.Second * time.Duration(getEnvInt("TRANSFORM_TIMEOUT_SECONDS", 30)),
		Theme:            strings.ToLower(getEnv("THEME", "purple")),
		DefaultLocale:    strings.ToLower(getEnv("DEFAULT_LOCALE", "en")),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		PreviewMaxEdge:   getEnvInt("PREVIEW_MAX_EDGE", 1024),
		SessionTTL:       time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)),
		SessionCookie:    getEnv("SESSION_COOKIE", "nb_session"),
		CookieSecure:     getEnvBool("COOKIE_SECURE", false),
		RedisURL:         os.Getenv("REDIS_URL"),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first few invalid fields by their environment names.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", envName(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func envName(field string) string {
	switch field {
	case "AppEnv":
		return "APP_ENV"
	case "Port":
		return "PORT"
	case "APIURL":
		return "API_URL"
	case "TransformTimeout":
		return "TRANSFORM_TIMEOUT_SECONDS"
	case "Theme":
		return "THEME"
	case "DefaultLocale":
		return "DEFAULT_LOCALE"
	case "MaxUploadBytes":
		return "MAX_UPLOAD_MB"
	case "PreviewMaxEdge":
		return "PREVIEW_MAX_EDGE"
	case "SessionTTL":
		return "SESSION_TTL_MINUTES"
	case "SessionCookie":
		return "SESSION_COOKIE"
	case "RedisURL":
		return "REDIS_URL"
	case "CORSOrigins":
		return "CORS_ALLOWED_ORIGINS"
	case "RateLimitPerMin":
		return "RATE_LIMIT_PER_MINUTE"
	}
	return field
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
