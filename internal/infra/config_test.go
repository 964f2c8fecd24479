package infra

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "PORT", "API_URL", "TRANSFORM_TIMEOUT_SECONDS", "THEME", "DEFAULT_LOCALE",
		"MAX_UPLOAD_MB", "PREVIEW_MAX_EDGE", "SESSION_TTL_MINUTES", "SESSION_COOKIE",
		"COOKIE_SECURE", "REDIS_URL", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.APIURL != "http://localhost:5001" {
		t.Fatalf("APIURL mismatch: got %q", cfg.APIURL)
	}
	if cfg.TransformTimeout != 30*time.Second {
		t.Fatalf("TransformTimeout mismatch: got %v", cfg.TransformTimeout)
	}
	if cfg.Theme != "purple" || cfg.DefaultLocale != "en" {
		t.Fatalf("theme/locale mismatch: %q %q", cfg.Theme, cfg.DefaultLocale)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != time.Hour || cfg.SessionCookie != "nb_session" {
		t.Fatalf("session config mismatch: %v %q", cfg.SessionTTL, cfg.SessionCookie)
	}
	if cfg.RedisURL != "" || cfg.CORSOrigins != nil {
		t.Fatalf("expected no redis/cors: %q %#v", cfg.RedisURL, cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_URL", "https://backend.example.com/")
	t.Setenv("THEME", "Emerald")
	t.Setenv("DEFAULT_LOCALE", "id")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.APIURL != "https://backend.example.com" {
		t.Fatalf("APIURL not trimmed: %q", cfg.APIURL)
	}
	if cfg.Theme != "emerald" || cfg.DefaultLocale != "id" {
		t.Fatalf("theme/locale mismatch: %q %q", cfg.Theme, cfg.DefaultLocale)
	}
	if cfg.MaxUploadBytes != 2<<20 || !cfg.CookieSecure {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
	for i := range want {
		if cfg.CORSOrigins[i] != want[i] {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		env  string
	}{
		{name: "unknown theme", key: "THEME", val: "neon", env: "THEME"},
		{name: "unsupported locale", key: "DEFAULT_LOCALE", val: "fr", env: "DEFAULT_LOCALE"},
		{name: "bad api url", key: "API_URL", val: "not a url", env: "API_URL"},
		{name: "zero upload", key: "MAX_UPLOAD_MB", val: "0", env: "MAX_UPLOAD_MB"},
		{name: "bad port", key: "PORT", val: "http", env: "PORT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.val)
			}
			if !strings.Contains(err.Error(), tc.env) {
				t.Fatalf("error %q does not name %s", err, tc.env)
			}
		})
	}
}
