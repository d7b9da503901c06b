package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
)

func newTestHTTP(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *HTTP {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTP(HTTPOptions{
		Vendor:  "carestack",
		BaseURL: server.URL,
		Timeout: timeout,
		Headers: func(context.Context) (http.Header, error) {
			h := http.Header{}
			h.Set("VendorKey", "vk")
			return h, nil
		},
	})
}

func TestHTTP_AppliesHeadersAndDecodes(t *testing.T) {
	var gotKey, gotContentType string
	client := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("VendorKey")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"id":"p1","firstName":"Maria"}`))
	}, time.Second)

	var out struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
	}
	err := client.Do(context.Background(), http.MethodPost, "/patients", map[string]string{"firstName": "Maria"}, &out)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotKey != "vk" {
		t.Fatalf("VendorKey header = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Fatalf("Content-Type = %q", gotContentType)
	}
	if out.ID != "p1" || out.FirstName != "Maria" {
		t.Fatalf("decoded = %+v", out)
	}
}

func TestHTTP_ClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 is authentication",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !pms.IsAuthentication(err) {
					t.Fatalf("error = %v, want authentication", err)
				}
			},
		},
		{
			name:   "404 is not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				if !pms.IsNotFound(err) {
					t.Fatalf("error = %v, want not found", err)
				}
			},
		},
		{
			name:   "429 carries retry-after",
			status: http.StatusTooManyRequests,
			header: http.Header{"Retry-After": []string{"7"}},
			check: func(t *testing.T, err error) {
				if !pms.IsRateLimit(err) {
					t.Fatalf("error = %v, want rate limit", err)
				}
				rateErr := err.(*pms.RateLimitError)
				if rateErr.RetryAfter != 7*time.Second {
					t.Fatalf("RetryAfter = %s, want 7s", rateErr.RetryAfter)
				}
			},
		},
		{
			name:   "500 is server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				srvErr, ok := err.(*pms.ServerError)
				if !ok {
					t.Fatalf("error = %T, want *pms.ServerError", err)
				}
				if srvErr.Status != http.StatusInternalServerError {
					t.Fatalf("Status = %d", srvErr.Status)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
				for name, values := range tt.header {
					w.Header()[name] = values
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}, time.Second)

			err := client.Do(context.Background(), http.MethodGet, "/patients/1", nil, nil)
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			tt.check(t, err)
		})
	}
}

func TestHTTP_Timeout(t *testing.T) {
	client := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	err := client.Do(context.Background(), http.MethodGet, "/locations", nil, nil)
	if !pms.IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
	timeoutErr := err.(*pms.TimeoutError)
	if timeoutErr.Timeout != 50*time.Millisecond {
		t.Fatalf("Timeout = %s, want configured budget", timeoutErr.Timeout)
	}
}

func TestHTTP_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTP(HTTPOptions{Vendor: "carestack", BaseURL: url, Timeout: time.Second})
	err := client.Do(context.Background(), http.MethodGet, "/locations", nil, nil)
	if !pms.IsNetwork(err) {
		t.Fatalf("error = %v, want network", err)
	}
}

func TestHTTP_HeaderFuncErrorStopsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)

	client := NewHTTP(HTTPOptions{
		Vendor:  "dentrix",
		BaseURL: server.URL,
		Timeout: time.Second,
		Headers: func(context.Context) (http.Header, error) {
			return nil, &pms.MissingTokenError{Vendor: "dentrix"}
		},
	})

	err := client.Do(context.Background(), http.MethodGet, "/patients/1", nil, nil)
	if _, ok := err.(*pms.MissingTokenError); !ok {
		t.Fatalf("error = %v, want MissingTokenError", err)
	}
	if called {
		t.Fatalf("request reached the server despite header failure")
	}
}
