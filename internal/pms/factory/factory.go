// Package factory assembles a ready-to-use PMS adapter for an office: it
// resolves credentials, picks the vendor backend, and wires either the live
// HTTP transport or the mock transport over a demo dataset.
package factory

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/audit"
	"github.com/brettulin/okdentalai/internal/observability/metrics"
	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/carestack"
	"github.com/brettulin/okdentalai/internal/pms/demo"
	"github.com/brettulin/okdentalai/internal/pms/dentrix"
	"github.com/brettulin/okdentalai/internal/pms/eaglesoft"
	"github.com/brettulin/okdentalai/internal/pms/transport"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// Options carries the shared infrastructure an adapter hangs off of. Every
// field is optional; zero values fall back to sane defaults.
type Options struct {
	Secrets   pms.Secrets
	Overrides pms.Overrides

	Logger  *logging.Logger
	Metrics *metrics.PMSMetrics
	Audit   audit.Sink

	// HTTPClient is shared across live transports so connection pools are
	// reused between adapters.
	HTTPClient *http.Client

	// Store backs mock-mode adapters. Nil gets a fresh seeded dataset, so
	// separate offices in demo mode do not see each other's bookings.
	Store     *demo.Store
	Simulator *transport.Simulator

	CacheTTL time.Duration
	Now      func() time.Time
}

// NewAdapter builds the adapter for an office's configured PMS type. The
// "mock" and "demo" types are aliases for a CareStack backend forced into
// mock mode.
func NewAdapter(pmsType string, opts Options) (*pms.Adapter, error) {
	vendor := strings.ToLower(strings.TrimSpace(pmsType))

	forceMock := false
	switch vendor {
	case "mock", "demo":
		vendor = "carestack"
		forceMock = true
	case "carestack", "dentrix", "eaglesoft":
	default:
		return nil, &pms.ConfigurationError{Reason: "unsupported pms type " + strconv.Quote(pmsType)}
	}

	cfg := pms.ResolveConfig(vendor, opts.Secrets, opts.Overrides, opts.Logger)
	if forceMock {
		cfg.UseMock = true
		cfg.Environment = pms.EnvMock
	}

	tc, err := buildTransport(vendor, cfg, opts)
	if err != nil {
		return nil, err
	}

	var backend pms.Backend
	switch vendor {
	case "carestack":
		backend = carestack.New(cfg, tc)
	case "dentrix":
		backend = dentrix.New(cfg, tc)
	case "eaglesoft":
		backend = eaglesoft.New(cfg, tc)
	}

	return pms.NewAdapterFor(backend, cfg, pms.AdapterOptions{
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Audit:    opts.Audit,
		CacheTTL: opts.CacheTTL,
		Now:      opts.Now,
	}), nil
}

func buildTransport(vendor string, cfg pms.Config, opts Options) (transport.Client, error) {
	if cfg.UseMock {
		store := opts.Store
		if store == nil {
			store = demo.NewStore(demo.Options{Now: opts.Now})
		}
		var routes []transport.Route
		switch vendor {
		case "carestack":
			routes = carestack.Routes(store)
		case "dentrix":
			routes = dentrix.Routes(store)
		case "eaglesoft":
			routes = eaglesoft.Routes(store)
		}
		return transport.NewMock(vendor, routes, cfg.Timeout, opts.Simulator, opts.Logger), nil
	}

	headers := func(context.Context) (http.Header, error) {
		return pms.HeadersFor(cfg, "")
	}

	return transport.NewHTTP(transport.HTTPOptions{
		Vendor:     vendor,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Headers:    headers,
		Logger:     opts.Logger,
		HTTPClient: opts.HTTPClient,
	}), nil
}
