package pms

import (
	"errors"
	"net/http"
)

// Vendor auth header names. CareStack-style connections use the three
// VendorKey/AccountKey/AccountID headers; api_key connections use the
// X-Api-Key convention.
const (
	headerVendorKey  = "VendorKey"
	headerAccountKey = "AccountKey"
	headerAccountID  = "AccountId"
	headerAPIKey     = "X-Api-Key"
	headerAPIAccount = "X-Account-Id"
)

// HeadersFor builds the request headers for the configured auth strategy.
// The strategies are mutually exclusive: exactly one applies per config.
func HeadersFor(cfg Config, accessToken string) (http.Header, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")

	switch cfg.AuthMethod {
	case AuthHeader:
		h.Set(headerVendorKey, cfg.VendorKey)
		h.Set(headerAccountKey, cfg.AccountKey)
		h.Set(headerAccountID, cfg.AccountID)
	case AuthOAuth2:
		token := accessToken
		if token == "" {
			token = cfg.AccessToken
		}
		if token == "" {
			return nil, &MissingTokenError{Vendor: cfg.Vendor}
		}
		h.Set("Authorization", "Bearer "+token)
	case AuthAPIKey:
		h.Set(headerAPIKey, cfg.VendorKey)
		if cfg.AccountID != "" {
			h.Set(headerAPIAccount, cfg.AccountID)
		}
	default:
		return nil, &ConfigurationError{Reason: "unsupported auth method " + string(cfg.AuthMethod)}
	}
	return h, nil
}

// CredentialCheck is the outcome of probing the vendor with the tenant's
// credentials.
type CredentialCheck struct {
	IsValid     bool       `json:"isValid"`
	Method      AuthMethod `json:"method"`
	Details     string     `json:"details"`
	Suggestions []string   `json:"suggestions,omitempty"`
}

// ClassifyCredentialCheck interprets the result of a cheap authenticated GET
// against the vendor. In mock mode the probe is skipped and credentials are
// always reported valid.
func ClassifyCredentialCheck(cfg Config, probeErr error) *CredentialCheck {
	check := &CredentialCheck{Method: cfg.AuthMethod}

	if cfg.UseMock {
		check.IsValid = true
		check.Details = "mock mode: credentials are not verified against a live endpoint"
		return check
	}
	if probeErr == nil {
		check.IsValid = true
		check.Details = "credentials accepted by " + cfg.Vendor
		return check
	}

	var authErr *AuthenticationError
	if errors.As(probeErr, &authErr) {
		check.Details = "vendor rejected the supplied credentials"
		check.Suggestions = []string{
			"check vendor key, account key, and account id for typos",
			"confirm the credentials match the selected environment (sandbox vs live)",
		}
		return check
	}

	var srvErr *ServerError
	if errors.As(probeErr, &srvErr) && srvErr.Status == http.StatusForbidden {
		check.Details = "credentials are recognized but not authorized for this API"
		check.Suggestions = []string{
			"contact " + cfg.Vendor + " support to enable API access for this account",
		}
		return check
	}

	check.Details = "could not reach the vendor endpoint: " + probeErr.Error()
	check.Suggestions = []string{
		"verify the base URL is correct and reachable",
		"check outbound network connectivity and any firewall rules",
	}
	return check
}
