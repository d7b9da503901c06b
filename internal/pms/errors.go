package pms

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError reports a 401-equivalent response: the vendor rejected
// the tenant's credentials.
type AuthenticationError struct {
	Vendor string
	Status int
	Body   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed (status %d): %s", e.Vendor, e.Status, e.Body)
}

// RateLimitError reports a 429-equivalent response. The adapter layer never
// retries; callers are expected to back off.
type RateLimitError struct {
	Vendor     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Vendor, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Vendor)
}

// ServerError reports a 5xx or otherwise unclassified non-2xx response.
type ServerError struct {
	Vendor string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: API error (status %d): %s", e.Vendor, e.Status, e.Body)
}

// TimeoutError reports a client-side deadline exceeded. Timeout is the
// configured per-request budget that was hit.
type TimeoutError struct {
	Vendor  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Vendor, e.Timeout)
}

// NetworkError reports a connection/DNS failure, or a simulated failure in
// mock mode.
type NetworkError struct {
	Vendor string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Vendor, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError is an internal signal for 404-equivalent vendor responses.
// Single-entity lookups normalize it to a nil result; it is never surfaced
// to callers of the capability interface.
type NotFoundError struct {
	Vendor string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Vendor, e.Path)
}

// ConfigurationError reports an unusable adapter configuration, such as an
// unsupported auth method.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "pms: configuration error: " + e.Reason
}

// MissingTokenError indicates the oauth2 auth strategy was selected but no
// bearer token was supplied by the caller.
type MissingTokenError struct {
	Vendor string
}

func (e *MissingTokenError) Error() string {
	return e.Vendor + ": oauth2 access token is required but was not provided"
}

// IsNotFound reports whether err is a 404-equivalent vendor response.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthentication reports whether err is a credential failure.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsRateLimit reports whether err is a vendor rate-limit response.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsTimeout reports whether err is a client-side deadline.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNetwork reports whether err is a connectivity failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
