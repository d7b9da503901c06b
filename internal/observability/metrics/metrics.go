package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PMSMetrics exposes counters/histograms for PMS adapter traffic. All
// methods are nil-safe so callers can run without a registry.
type PMSMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	cacheTotal     *prometheus.CounterVec
}

func NewPMSMetrics(reg prometheus.Registerer) *PMSMetrics {
	m := &PMSMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "okdental",
			Subsystem: "pms",
			Name:      "requests_total",
			Help:      "Total PMS capability calls",
		}, []string{"vendor", "op", "outcome"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "okdental",
			Subsystem: "pms",
			Name:      "request_seconds",
			Help:      "Latency of PMS capability calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vendor", "op"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "okdental",
			Subsystem: "pms",
			Name:      "cache_total",
			Help:      "Reference-data cache lookups by result",
		}, []string{"capability", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestSeconds, m.cacheTotal)
	return m
}

func (m *PMSMetrics) ObserveRequest(vendor, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(vendor, op, outcome).Inc()
	m.requestSeconds.WithLabelValues(vendor, op).Observe(elapsed.Seconds())
}

func (m *PMSMetrics) ObserveCache(capability string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(capability, result).Inc()
}
