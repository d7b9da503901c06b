package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PMS_DEFAULT_TYPE", "")
	t.Setenv("PMS_TIMEOUT", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.PMSDefaultType != "demo" {
		t.Fatalf("expected default pms type demo, got %s", cfg.PMSDefaultType)
	}
	if cfg.PMSTimeout != 30*time.Second {
		t.Fatalf("expected default pms timeout, got %s", cfg.PMSTimeout)
	}
	if cfg.PMSCacheTTL != 5*time.Minute {
		t.Fatalf("expected default cache ttl, got %s", cfg.PMSCacheTTL)
	}
	if cfg.PMSUseMock {
		t.Fatalf("expected mock mode off by default")
	}
	if cfg.RateLimitPerSecond != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %f", cfg.RateLimitPerSecond)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("PMS_DEFAULT_TYPE", "CareStack")
	t.Setenv("PMS_TIMEOUT", "10s")
	t.Setenv("PMS_MAX_RETRIES", "5")
	t.Setenv("PMS_USE_MOCK", "true")
	t.Setenv("PMS_MOCK_NO_LATENCY", "true")
	t.Setenv("RATE_LIMIT_PER_SECOND", "25.5")
	t.Setenv("RATE_LIMIT_BURST", "50")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("CARESTACK_BASE_URL", "https://sandbox.carestack.example")
	t.Setenv("CARESTACK_VENDOR_KEY", "vk")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("unexpected database url %s", cfg.DatabaseURL)
	}
	if cfg.PMSDefaultType != "carestack" {
		t.Fatalf("expected pms type lowercased, got %s", cfg.PMSDefaultType)
	}
	if cfg.PMSTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %s", cfg.PMSTimeout)
	}
	if cfg.PMSMaxRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", cfg.PMSMaxRetries)
	}
	if !cfg.PMSUseMock || !cfg.PMSMockNoLatency {
		t.Fatalf("expected mock flags set")
	}
	if cfg.RateLimitPerSecond != 25.5 || cfg.RateLimitBurst != 50 {
		t.Fatalf("rate limit = %f/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CareStackVendorKey != "vk" {
		t.Fatalf("carestack vendor key = %s", cfg.CareStackVendorKey)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PMS_TIMEOUT", "not-a-duration")
	t.Setenv("PMS_MAX_RETRIES", "many")
	t.Setenv("RATE_LIMIT_PER_SECOND", "fast")

	cfg := Load()
	if cfg.PMSTimeout != 30*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.PMSTimeout)
	}
	if cfg.PMSMaxRetries != 3 {
		t.Fatalf("expected fallback retries, got %d", cfg.PMSMaxRetries)
	}
	if cfg.RateLimitPerSecond != 0 {
		t.Fatalf("expected fallback rate limit, got %f", cfg.RateLimitPerSecond)
	}
}
