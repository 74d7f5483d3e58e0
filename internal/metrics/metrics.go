// Package metrics exposes Prometheus collectors for the decision cycle,
// grounded on chidi150c-coinbase's metrics.go: package-level vars
// registered in init(), with small helper setters so call sites never
// touch prometheus types directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_cycle_duration_seconds",
			Help:    "Wall-clock duration of a decision cycle, by strategy tag.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	picksPerCycle = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_picks_per_cycle",
			Help: "Number of buy picks produced in the most recent cycle, by strategy tag.",
		},
		[]string{"strategy"},
	)

	budgetUtilizationPct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_budget_utilization_pct",
			Help: "Percentage of the effective budget spent in the most recent cycle.",
		},
		[]string{"strategy"},
	)

	circuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_circuit_breaker_trips_total",
			Help: "Count of circuit breaker trips, by guarded collaborator.",
		},
		[]string{"collaborator"},
	)

	cyclesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_cycles_skipped_total",
			Help: "Count of decision cycles skipped, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(cycleDuration, picksPerCycle, budgetUtilizationPct, circuitBreakerTrips, cyclesSkipped)
}

// ObserveCycleDuration records how long one strategy's cycle took.
func ObserveCycleDuration(strategyTag string, seconds float64) {
	cycleDuration.WithLabelValues(strategyTag).Observe(seconds)
}

// SetPicksPerCycle records the buy-pick count for one strategy's cycle.
func SetPicksPerCycle(strategyTag string, n int) {
	picksPerCycle.WithLabelValues(strategyTag).Set(float64(n))
}

// SetBudgetUtilizationPct records the percentage of budget spent.
func SetBudgetUtilizationPct(strategyTag string, pct float64) {
	budgetUtilizationPct.WithLabelValues(strategyTag).Set(pct)
}

// IncCircuitBreakerTrip records one trip of a named collaborator's breaker.
func IncCircuitBreakerTrip(collaborator string) {
	circuitBreakerTrips.WithLabelValues(collaborator).Inc()
}

// IncCycleSkipped records one skipped cycle with its reason.
func IncCycleSkipped(reason string) {
	cyclesSkipped.WithLabelValues(reason).Inc()
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
