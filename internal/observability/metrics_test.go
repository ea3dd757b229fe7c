package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()

	m.RecordSession("success", 2, time.Second)
	m.RecordSession("success", 4, 2*time.Second)
	m.RecordSession("exhausted", 10, 3*time.Second)
	m.RecordServiceRetry()
	m.RecordCredentialUse(1)
	m.RecordCredentialUse(2)
	m.RecordCredentialUse(1)
	m.RecordDuplicate()

	require.InDelta(t, 2, testutil.ToFloat64(m.RepairSessions.WithLabelValues("success")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.RepairSessions.WithLabelValues("exhausted")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.ServiceRetries), 1e-9)
	require.InDelta(t, 2, testutil.ToFloat64(m.CredentialUses.WithLabelValues("1")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.CredentialUses.WithLabelValues("2")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.DuplicateSubs), 1e-9)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordSession("success", 1, time.Second)
	m.ObserveVerification(time.Millisecond, true)
	m.RecordServiceRetry()
	m.RecordCredentialUse(1)
	m.RecordDuplicate()
}

func TestMetricsRegistryGathers(t *testing.T) {
	m := NewMetrics()
	m.RecordSession("aborted", 0, time.Second)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
