package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// Simulator injects network realism into mock mode: a randomized latency
// window and a small independent failure probability. It is seedable so
// failure-path tests stay deterministic.
type Simulator struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error
}

// SimulatorOptions configure a Simulator. Zero values use the defaults:
// 200–500ms latency and a 4% failure rate.
type SimulatorOptions struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
	Seed        int64
	// NoLatency disables the sleep entirely, for tests.
	NoLatency bool
}

var errSimulatedFailure = errors.New("simulated network failure")

// NewSimulator creates a seeded simulator.
func NewSimulator(opts SimulatorOptions) *Simulator {
	s := &Simulator{
		minLatency:  opts.MinLatency,
		maxLatency:  opts.MaxLatency,
		failureRate: opts.FailureRate,
		rng:         rand.New(rand.NewSource(opts.Seed)),
	}
	if s.minLatency <= 0 && s.maxLatency <= 0 && !opts.NoLatency {
		s.minLatency = 200 * time.Millisecond
		s.maxLatency = 500 * time.Millisecond
	}
	if opts.NoLatency {
		s.minLatency, s.maxLatency = 0, 0
	}
	if s.failureRate == 0 {
		s.failureRate = 0.04
	}
	if s.failureRate < 0 {
		s.failureRate = 0
	}
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return s
}

// Simulate sleeps the latency window and reports a simulated failure with
// the configured probability.
func (s *Simulator) Simulate(ctx context.Context) error {
	s.mu.Lock()
	latency := s.minLatency
	if s.maxLatency > s.minLatency {
		latency += time.Duration(s.rng.Int63n(int64(s.maxLatency - s.minLatency)))
	}
	failed := s.rng.Float64() < s.failureRate
	s.mu.Unlock()

	if err := s.sleep(ctx, latency); err != nil {
		return err
	}
	if failed {
		return errSimulatedFailure
	}
	return nil
}

// Route maps an endpoint pattern to a canned handler. A request matches when
// its method equals Method and its path contains PathContains.
type Route struct {
	Method       string
	PathContains string
	Handle       func(ctx context.Context, path string, body json.RawMessage) (any, error)
}

// Mock is the mock-mode transport: no network egress, deterministic
// shape-compatible responses routed by endpoint substring and HTTP method.
// Simulated latency and failures come from the injected Simulator.
type Mock struct {
	vendor  string
	routes  []Route
	sim     *Simulator
	timeout time.Duration
	logger  *logging.Logger
}

// NewMock creates a mock transport over a vendor route table. The timeout is
// the tenant's configured request budget; it is only reported in timeout
// errors, since the caller's context enforces the deadline.
func NewMock(vendor string, routes []Route, timeout time.Duration, sim *Simulator, logger *logging.Logger) *Mock {
	if sim == nil {
		sim = NewSimulator(SimulatorOptions{Seed: time.Now().UnixNano()})
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Mock{vendor: vendor, routes: routes, sim: sim, timeout: timeout, logger: logger}
}

// Do implements Client.
func (m *Mock) Do(ctx context.Context, method, path string, body, out any) error {
	if err := m.sim.Simulate(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &pms.TimeoutError{Vendor: m.vendor, Timeout: m.timeout}
		}
		return &pms.NetworkError{Vendor: m.vendor, Err: err}
	}

	var raw json.RawMessage
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", m.vendor, err)
		}
		raw = payload
	}

	for _, route := range m.routes {
		if route.Method != method || !strings.Contains(path, route.PathContains) {
			continue
		}
		result, err := route.Handle(ctx, path, raw)
		if err != nil {
			return err
		}
		if out == nil || result == nil {
			return nil
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("%s: encode mock response: %w", m.vendor, err)
		}
		if err := json.Unmarshal(encoded, out); err != nil {
			return fmt.Errorf("%s: decode mock response: %w", m.vendor, err)
		}
		return nil
	}

	m.logger.Warn("unrouted mock endpoint", "vendor", m.vendor, "method", method, "path", path)
	return &pms.ServerError{
		Vendor: m.vendor,
		Status: http.StatusNotImplemented,
		Body:   "no mock route for " + method + " " + path,
	}
}
