package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the repair loop.
type Metrics struct {
	registry        *prometheus.Registry
	RepairSessions  *prometheus.CounterVec
	RepairDuration  *prometheus.HistogramVec
	RepairAttempts  *prometheus.HistogramVec
	VerifyDuration  *prometheus.HistogramVec
	ServiceRetries  prometheus.Counter
	CredentialUses  *prometheus.CounterVec
	DuplicateSubs   prometheus.Counter
}

// NewMetrics constructs a metrics registry with repair collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentfix_repair_sessions_total",
		Help: "Finished repair sessions by outcome",
	}, []string{"outcome"})

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentfix_repair_duration_seconds",
		Help:    "Repair session duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"outcome"})

	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentfix_repair_verifications",
		Help:    "Verification cycles spent per session",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	}, []string{"outcome"})

	verify := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentfix_verify_duration_seconds",
		Help:    "Candidate verification duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"accepted"})

	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agentfix_service_retries_total",
		Help: "Failed service attempts that triggered retry or abort",
	})

	credentials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentfix_credential_dispensed_total",
		Help: "Credential dispenses by rotator ordinal",
	}, []string{"ordinal"})

	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agentfix_duplicate_submissions_total",
		Help: "Candidate submissions short-circuited by the duplicate guard",
	})

	reg.MustRegister(sessions, durations, attempts, verify, retries, credentials, duplicates)

	return &Metrics{
		registry:       reg,
		RepairSessions: sessions,
		RepairDuration: durations,
		RepairAttempts: attempts,
		VerifyDuration: verify,
		ServiceRetries: retries,
		CredentialUses: credentials,
		DuplicateSubs:  duplicates,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSession records a finished session.
func (m *Metrics) RecordSession(outcome string, verifications int, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.RepairSessions.WithLabelValues(outcome).Inc()
	m.RepairDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.RepairAttempts.WithLabelValues(outcome).Observe(float64(verifications))
}

// ObserveVerification records one candidate verification.
func (m *Metrics) ObserveVerification(duration time.Duration, accepted bool) {
	if m == nil {
		return
	}
	m.VerifyDuration.WithLabelValues(strconv.FormatBool(accepted)).Observe(duration.Seconds())
}

// RecordServiceRetry counts a failed service attempt.
func (m *Metrics) RecordServiceRetry() {
	if m == nil {
		return
	}
	m.ServiceRetries.Inc()
}

// RecordCredentialUse counts a rotator dispense.
func (m *Metrics) RecordCredentialUse(ordinal int) {
	if m == nil {
		return
	}
	m.CredentialUses.WithLabelValues(strconv.Itoa(ordinal)).Inc()
}

// RecordDuplicate counts a duplicate-guarded submission.
func (m *Metrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateSubs.Inc()
}
