package pms

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", &NotFoundError{Vendor: "carestack", Path: "/patients/1"}, IsNotFound},
		{"authentication", &AuthenticationError{Vendor: "carestack", Status: 401}, IsAuthentication},
		{"rate limit", &RateLimitError{Vendor: "carestack", RetryAfter: time.Second}, IsRateLimit},
		{"timeout", &TimeoutError{Vendor: "carestack", Timeout: time.Second}, IsTimeout},
		{"network", &NetworkError{Vendor: "carestack", Err: errors.New("refused")}, IsNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Fatalf("predicate did not match %v", tt.err)
			}
			if !tt.pred(fmt.Errorf("carestack: list patients: %w", tt.err)) {
				t.Fatalf("predicate did not match wrapped %v", tt.err)
			}
			if tt.pred(errors.New("some other error")) {
				t.Fatalf("predicate matched an unrelated error")
			}
			if tt.pred(nil) {
				t.Fatalf("predicate matched nil")
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &NetworkError{Vendor: "dentrix", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("NetworkError does not unwrap to its cause")
	}
}
