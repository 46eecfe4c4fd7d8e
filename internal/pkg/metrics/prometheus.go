package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callwaiting"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Metering metrics
	eligibilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "eligibility_decisions_total",
			Help:      "Admission decisions by surface and outcome",
		},
		[]string{"surface", "outcome", "reason"},
	)

	minutesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "minutes_recorded_total",
			Help:      "Billable minutes charged to the quota ledger",
		},
		[]string{"kind"},
	)

	ledgerWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "ledger_write_failures_total",
			Help:      "Usage writes that failed and were swallowed",
		},
		[]string{"stage"},
	)

	trialSecondsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trial",
			Name:      "seconds_recorded_total",
			Help:      "Seconds charged against free trials",
		},
	)

	trialRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trial",
			Name:      "rejections_total",
			Help:      "Trial usage recordings refused",
		},
		[]string{"reason"},
	)

	trialOverageSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trial",
			Name:      "overage_seconds_total",
			Help:      "Call seconds beyond the remaining trial allowance",
		},
	)

	periodResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "period_resets_total",
			Help:      "Billing period resets by trigger",
		},
		[]string{"trigger"},
	)

	planActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "plan_activations_total",
			Help:      "Plan activations by plan",
		},
		[]string{"plan"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		// Label by route pattern to keep account IDs out of the series
		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEligibilityDecision counts an admission decision
func RecordEligibilityDecision(surface string, allowed bool, reason string) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	eligibilityDecisions.WithLabelValues(surface, outcome, reason).Inc()
}

// RecordMinutes counts minutes charged for a usage kind
func RecordMinutes(kind string, minutes int64) {
	minutesRecorded.WithLabelValues(kind).Add(float64(minutes))
}

// RecordLedgerWriteFailure counts a swallowed storage failure
func RecordLedgerWriteFailure(stage string) {
	ledgerWriteFailures.WithLabelValues(stage).Inc()
}

// RecordTrialSeconds counts seconds charged against a trial
func RecordTrialSeconds(seconds int64) {
	trialSecondsRecorded.Add(float64(seconds))
}

// RecordTrialRejection counts a refused trial recording
func RecordTrialRejection(reason string) {
	trialRejections.WithLabelValues(reason).Inc()
}

// RecordTrialOverage counts call seconds that did not fit the trial
func RecordTrialOverage(seconds int64) {
	trialOverageSeconds.Add(float64(seconds))
}

// RecordPeriodReset counts billing period resets
func RecordPeriodReset(trigger string, count int) {
	periodResets.WithLabelValues(trigger).Add(float64(count))
}

// RecordPlanActivation counts a confirmed plan purchase
func RecordPlanActivation(plan string) {
	planActivations.WithLabelValues(plan).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// ObserveDBQuery records the time since start; use it with defer.
func ObserveDBQuery(operation, table string, start time.Time) {
	RecordDBQuery(operation, table, time.Since(start))
}
