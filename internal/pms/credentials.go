package pms

import (
	"strings"
	"time"

	"github.com/brettulin/okdentalai/pkg/logging"
)

// AuthMethod selects the header-building strategy for a vendor connection.
type AuthMethod string

const (
	AuthHeader AuthMethod = "header"  // vendor-key / account-key / account-id headers
	AuthOAuth2 AuthMethod = "oauth2"  // caller-supplied bearer token
	AuthAPIKey AuthMethod = "api_key" // X-Api-Key style headers
)

// Environment selects which vendor endpoint family a tenant talks to.
type Environment string

const (
	EnvMock    Environment = "mock"
	EnvSandbox Environment = "sandbox"
	EnvLive    Environment = "live"
)

// Config is the resolved, immutable per-adapter connection record. It is
// constructed once by ResolveConfig and read-only for the adapter lifetime.
type Config struct {
	Vendor             string
	VendorKey          string
	AccountKey         string
	AccountID          string
	BaseURL            string
	AuthMethod         AuthMethod
	AccessToken        string // oauth2 only, supplied by the caller
	Timeout            time.Duration
	MaxRetries         int // config surface only; this layer never retries
	RateLimitPerSecond int // reserved for a future admission-control layer
	UseMock            bool
	Environment        Environment
}

// Secrets are the per-tenant stored PMS connection parameters, as persisted
// by the (out of scope) settings store.
type Secrets struct {
	VendorKey      string `json:"vendor_key,omitempty"`
	AccountKey     string `json:"account_key,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
	SandboxBaseURL string `json:"sandbox_base_url,omitempty"`
	LiveBaseURL    string `json:"live_base_url,omitempty"`
	AuthMethod     string `json:"auth_method,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
	Environment    string `json:"environment,omitempty"`
	UseMock        bool   `json:"use_mock,omitempty"`
}

// Overrides carry environment-style numeric/behavioral overrides applied on
// top of tenant secrets.
type Overrides struct {
	ForceMock          bool
	Timeout            time.Duration
	MaxRetries         int
	RateLimitPerSecond int
}

const (
	defaultTimeout   = 30 * time.Second
	defaultRetries   = 3
	defaultRateLimit = 10
)

// ResolveConfig resolves a tenant's connection parameters into a usable
// Config. Missing live credentials or an explicit mock flag fall back to a
// mock-mode config with placeholder credentials; that fallback is safe and
// logged as a warning, never an error.
func ResolveConfig(vendor string, secrets Secrets, overrides Overrides, logger *logging.Logger) Config {
	if logger == nil {
		logger = logging.Default()
	}

	cfg := Config{
		Vendor:             vendor,
		Timeout:            overrides.Timeout,
		MaxRetries:         overrides.MaxRetries,
		RateLimitPerSecond: overrides.RateLimitPerSecond,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = defaultRateLimit
	}

	method := AuthMethod(strings.ToLower(strings.TrimSpace(secrets.AuthMethod)))
	if method == "" {
		method = defaultAuthMethod(vendor)
	}
	cfg.AuthMethod = method
	cfg.AccessToken = strings.TrimSpace(secrets.AccessToken)

	env := Environment(strings.ToLower(strings.TrimSpace(secrets.Environment)))
	wantMock := overrides.ForceMock || secrets.UseMock || env == EnvMock
	if !wantMock && missingLiveCredentials(method, secrets) {
		logger.Warn("pms credentials incomplete, falling back to mock mode",
			"vendor", vendor,
			"auth_method", string(method),
		)
		wantMock = true
	} else if wantMock {
		logger.Warn("pms mock mode enabled", "vendor", vendor)
	}

	if wantMock {
		cfg.UseMock = true
		cfg.Environment = EnvMock
		cfg.VendorKey = "mock-vendor-key"
		cfg.AccountKey = "mock-account-key"
		cfg.AccountID = "mock-account"
		cfg.BaseURL = "http://mock.invalid"
		return cfg
	}

	cfg.VendorKey = strings.TrimSpace(secrets.VendorKey)
	cfg.AccountKey = strings.TrimSpace(secrets.AccountKey)
	cfg.AccountID = strings.TrimSpace(secrets.AccountID)

	if env == EnvLive && secrets.LiveBaseURL != "" {
		cfg.Environment = EnvLive
		cfg.BaseURL = strings.TrimRight(secrets.LiveBaseURL, "/")
	} else {
		cfg.Environment = EnvSandbox
		base := secrets.SandboxBaseURL
		if strings.TrimSpace(base) == "" {
			// Tenants that only store a live URL still need a routable config.
			base = secrets.LiveBaseURL
		}
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	return cfg
}

// defaultAuthMethod is the strategy each vendor's API natively expects.
func defaultAuthMethod(vendor string) AuthMethod {
	switch strings.ToLower(vendor) {
	case "dentrix":
		return AuthOAuth2
	case "eaglesoft":
		return AuthAPIKey
	default:
		return AuthHeader
	}
}

func missingLiveCredentials(method AuthMethod, secrets Secrets) bool {
	hasURL := strings.TrimSpace(secrets.SandboxBaseURL) != "" || strings.TrimSpace(secrets.LiveBaseURL) != ""
	if !hasURL {
		return true
	}
	switch method {
	case AuthOAuth2:
		// Token may be minted per request by the caller; only the URL is
		// required up front.
		return false
	case AuthAPIKey:
		return strings.TrimSpace(secrets.VendorKey) == ""
	default:
		return strings.TrimSpace(secrets.VendorKey) == "" || strings.TrimSpace(secrets.AccountKey) == ""
	}
}
