package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics emitted by the persistence and
// migration layers. It owns a private registry so no global state is shared;
// a nil *Collector is valid and turns every observation into a no-op, which
// keeps unit tests free of registry bookkeeping.
type Collector struct {
	Registry *prometheus.Registry

	TenantTxTotal    *prometheus.CounterVec
	TenantTxDuration *prometheus.HistogramVec

	MigrationsApplied *prometheus.CounterVec
	MigrationFailures *prometheus.CounterVec
}

// NewCollector builds a Collector with all metrics registered on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,

		TenantTxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assessio",
			Subsystem: "tenant",
			Name:      "tx_total",
			Help:      "Total tenant-scoped transactions, by outcome.",
		}, []string{"outcome"}),

		TenantTxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assessio",
			Subsystem: "tenant",
			Name:      "tx_duration_seconds",
			Help:      "Duration of tenant-scoped transactions in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}, []string{"outcome"}),

		MigrationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assessio",
			Subsystem: "migrate",
			Name:      "applied_total",
			Help:      "Migration scripts applied, by scope (public or tenant).",
		}, []string{"scope"}),

		MigrationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assessio",
			Subsystem: "migrate",
			Name:      "failures_total",
			Help:      "Migration scripts that failed to apply, by scope.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.TenantTxTotal,
		c.TenantTxDuration,
		c.MigrationsApplied,
		c.MigrationFailures,
	)

	return c
}

// ObserveTenantTx records one tenant-scoped transaction.
func (c *Collector) ObserveTenantTx(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.TenantTxTotal.WithLabelValues(outcome).Inc()
	c.TenantTxDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// MigrationApplied counts one successfully applied script for the given scope.
func (c *Collector) MigrationApplied(scope string) {
	if c == nil {
		return
	}
	c.MigrationsApplied.WithLabelValues(scope).Inc()
}

// MigrationFailed counts one failed script for the given scope.
func (c *Collector) MigrationFailed(scope string) {
	if c == nil {
		return
	}
	c.MigrationFailures.WithLabelValues(scope).Inc()
}
