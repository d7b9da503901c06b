package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Default PMS behavior. Per-office overrides come from the office
	// registry; these cover what the platform applies when an office
	// doesn't say otherwise.
	PMSDefaultType   string
	PMSTimeout       time.Duration
	PMSMaxRetries    int
	PMSCacheTTL      time.Duration
	PMSUseMock       bool
	PMSMockSeed      int64
	PMSMockNoLatency bool

	// CareStack credentials for single-tenant deployments.
	CareStackBaseURL    string
	CareStackVendorKey  string
	CareStackAccountKey string
	CareStackAccountID  string

	// Dentrix Ascend credentials.
	DentrixBaseURL     string
	DentrixAccessToken string

	// Eaglesoft credentials.
	EaglesoftBaseURL   string
	EaglesoftAPIKey    string
	EaglesoftAccountID string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 0),

		PMSDefaultType:   strings.ToLower(strings.TrimSpace(getEnv("PMS_DEFAULT_TYPE", "demo"))),
		PMSTimeout:       getEnvAsDuration("PMS_TIMEOUT", 30*time.Second),
		PMSMaxRetries:    getEnvAsInt("PMS_MAX_RETRIES", 3),
		PMSCacheTTL:      getEnvAsDuration("PMS_CACHE_TTL", 5*time.Minute),
		PMSUseMock:       getEnvAsBool("PMS_USE_MOCK", false),
		PMSMockSeed:      int64(getEnvAsInt("PMS_MOCK_SEED", 0)),
		PMSMockNoLatency: getEnvAsBool("PMS_MOCK_NO_LATENCY", false),

		CareStackBaseURL:    getEnv("CARESTACK_BASE_URL", ""),
		CareStackVendorKey:  getEnv("CARESTACK_VENDOR_KEY", ""),
		CareStackAccountKey: getEnv("CARESTACK_ACCOUNT_KEY", ""),
		CareStackAccountID:  getEnv("CARESTACK_ACCOUNT_ID", ""),

		DentrixBaseURL:     getEnv("DENTRIX_BASE_URL", ""),
		DentrixAccessToken: getEnv("DENTRIX_ACCESS_TOKEN", ""),

		EaglesoftBaseURL:   getEnv("EAGLESOFT_BASE_URL", ""),
		EaglesoftAPIKey:    getEnv("EAGLESOFT_API_KEY", ""),
		EaglesoftAccountID: getEnv("EAGLESOFT_ACCOUNT_ID", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
