// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	HoldersEvaluated prometheus.Gauge
	EligibleHolders  prometheus.Gauge
	RejectionsTotal  *prometheus.CounterVec

	// Payout metrics
	PayoutsCreated  prometheus.Counter
	PayoutAmountUSD prometheus.Counter
	PoolBalanceUSD  prometheus.Gauge

	// Ingestion metrics
	EventsIngested     prometheus.Counter
	EventsDeduplicated prometheus.Counter

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderErrors      *prometheus.CounterVec
	PriceObservationAge prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lossmine"
	}

	return &Metrics{
		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of settlement cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Settlement cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		HoldersEvaluated: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "holders_evaluated",
			Help:      "Number of holders evaluated in the last cycle",
		}),
		EligibleHolders: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "eligible_holders",
			Help:      "Number of eligible holders in the last cycle",
		}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "rejections_total",
			Help:      "Total number of eligibility rejections by reason",
		}, []string{"reason"}),

		// Payout metrics
		PayoutsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "records_created_total",
			Help:      "Total number of payout records created",
		}),
		PayoutAmountUSD: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "amount_usd_total",
			Help:      "Total USD amount allocated to winners",
		}),
		PoolBalanceUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "pool_balance_usd",
			Help:      "Reward pool balance at the last cycle",
		}),

		// Ingestion metrics
		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of acquisition events stored",
		}),
		EventsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_deduplicated_total",
			Help:      "Total number of replayed events skipped as duplicates",
		}),

		// Provider metrics
		ProviderCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "call_latency_seconds",
			Help:      "Upstream provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "errors_total",
			Help:      "Total number of upstream provider errors",
		}, []string{"call"}),
		PriceObservationAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "price_observation_age_seconds",
			Help:      "Age of the cached price observation",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records a completed settlement cycle.
func RecordCycle(status string, durationSeconds float64, holders, eligible int) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	DefaultMetrics.HoldersEvaluated.Set(float64(holders))
	DefaultMetrics.EligibleHolders.Set(float64(eligible))
}

// RecordRejections adds one cycle's per-reason rejection counts.
func RecordRejections(counts map[string]int) {
	for reason, n := range counts {
		DefaultMetrics.RejectionsTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordPayout records one created payout record.
func RecordPayout(amountUSD float64) {
	DefaultMetrics.PayoutsCreated.Inc()
	DefaultMetrics.PayoutAmountUSD.Add(amountUSD)
}

// UpdatePoolBalance updates the pool balance gauge.
func UpdatePoolBalance(usd float64) {
	DefaultMetrics.PoolBalanceUSD.Set(usd)
}

// RecordIngestedEvent counts one stored or deduplicated event.
func RecordIngestedEvent(duplicate bool) {
	if duplicate {
		DefaultMetrics.EventsDeduplicated.Inc()
		return
	}
	DefaultMetrics.EventsIngested.Inc()
}

// RecordProviderCall records upstream call latency and errors.
func RecordProviderCall(call string, seconds float64, err error) {
	DefaultMetrics.ProviderCallLatency.WithLabelValues(call).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderErrors.WithLabelValues(call).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkCycleSuccess stamps the last successful cycle gauge.
func MarkCycleSuccess(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulCycle.Set(unixSeconds)
}
