package pms

import (
	"errors"
	"net/http"
	"testing"
)

func TestHeadersFor_HeaderMethod(t *testing.T) {
	cfg := Config{
		Vendor:     "carestack",
		AuthMethod: AuthHeader,
		VendorKey:  "vk",
		AccountKey: "ak",
		AccountID:  "acct",
	}

	h, err := HeadersFor(cfg, "")
	if err != nil {
		t.Fatalf("HeadersFor() error = %v", err)
	}
	if got := h.Get("VendorKey"); got != "vk" {
		t.Fatalf("VendorKey = %q, want vk", got)
	}
	if got := h.Get("AccountKey"); got != "ak" {
		t.Fatalf("AccountKey = %q, want ak", got)
	}
	if got := h.Get("AccountId"); got != "acct" {
		t.Fatalf("AccountId = %q, want acct", got)
	}
	if got := h.Get("Accept"); got != "application/json" {
		t.Fatalf("Accept = %q", got)
	}
}

func TestHeadersFor_OAuth2(t *testing.T) {
	cfg := Config{Vendor: "dentrix", AuthMethod: AuthOAuth2}

	h, err := HeadersFor(cfg, "tok-123")
	if err != nil {
		t.Fatalf("HeadersFor() error = %v", err)
	}
	if got := h.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestHeadersFor_OAuth2FallsBackToConfigToken(t *testing.T) {
	cfg := Config{Vendor: "dentrix", AuthMethod: AuthOAuth2, AccessToken: "cfg-tok"}

	h, err := HeadersFor(cfg, "")
	if err != nil {
		t.Fatalf("HeadersFor() error = %v", err)
	}
	if got := h.Get("Authorization"); got != "Bearer cfg-tok" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestHeadersFor_OAuth2MissingToken(t *testing.T) {
	cfg := Config{Vendor: "dentrix", AuthMethod: AuthOAuth2}

	_, err := HeadersFor(cfg, "")
	var missing *MissingTokenError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingTokenError", err)
	}
	if missing.Vendor != "dentrix" {
		t.Fatalf("Vendor = %q, want dentrix", missing.Vendor)
	}
}

func TestHeadersFor_APIKey(t *testing.T) {
	cfg := Config{Vendor: "eaglesoft", AuthMethod: AuthAPIKey, VendorKey: "key-1", AccountID: "acct-9"}

	h, err := HeadersFor(cfg, "")
	if err != nil {
		t.Fatalf("HeadersFor() error = %v", err)
	}
	if got := h.Get("X-Api-Key"); got != "key-1" {
		t.Fatalf("X-Api-Key = %q", got)
	}
	if got := h.Get("X-Account-Id"); got != "acct-9" {
		t.Fatalf("X-Account-Id = %q", got)
	}
}

func TestHeadersFor_UnknownMethod(t *testing.T) {
	_, err := HeadersFor(Config{AuthMethod: AuthMethod("saml")}, "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}

func TestClassifyCredentialCheck(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		probeErr    error
		wantValid   bool
		wantSuggest bool
	}{
		{
			name:      "mock mode is always valid",
			cfg:       Config{Vendor: "carestack", UseMock: true, AuthMethod: AuthHeader},
			wantValid: true,
		},
		{
			name:      "probe succeeded",
			cfg:       Config{Vendor: "carestack", AuthMethod: AuthHeader},
			wantValid: true,
		},
		{
			name:        "authentication rejected",
			cfg:         Config{Vendor: "carestack", AuthMethod: AuthHeader},
			probeErr:    &AuthenticationError{Vendor: "carestack", Status: http.StatusUnauthorized},
			wantSuggest: true,
		},
		{
			name:        "forbidden account",
			cfg:         Config{Vendor: "carestack", AuthMethod: AuthHeader},
			probeErr:    &ServerError{Vendor: "carestack", Status: http.StatusForbidden},
			wantSuggest: true,
		},
		{
			name:        "network failure",
			cfg:         Config{Vendor: "carestack", AuthMethod: AuthHeader},
			probeErr:    &NetworkError{Vendor: "carestack", Err: errors.New("dial tcp: refused")},
			wantSuggest: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ClassifyCredentialCheck(tt.cfg, tt.probeErr)
			if check.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, want %v", check.IsValid, tt.wantValid)
			}
			if check.Method != tt.cfg.AuthMethod {
				t.Fatalf("Method = %s, want %s", check.Method, tt.cfg.AuthMethod)
			}
			if tt.wantSuggest && len(check.Suggestions) == 0 {
				t.Fatalf("expected suggestions, got none")
			}
			if check.Details == "" {
				t.Fatalf("Details is empty")
			}
		})
	}
}
