package metric_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianquant/docvault/metric"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *metric.Metrics

	// None of these may panic on a nil receiver.
	m.ObserveWrite("fx-spot-price", "created", "success")
	m.ObserveConflictRetry("fx-spot-price")
	m.ObservePublishFailure("fx-spot-price-created")
	m.ObserveBulkFailures(3)
	m.ObservePurged(2)
}

func TestRegisterAndObserve(t *testing.T) {
	m := metric.New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.ObserveWrite("fx-spot-price", "created", "success")
	m.ObserveWrite("fx-spot-price", "created", "success")
	m.ObserveConflictRetry("fx-spot-price")
	m.ObserveBulkFailures(0)
	m.ObservePurged(4)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.WritesTotal.WithLabelValues("fx-spot-price", "created", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AllocationRetries))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.BulkItemFailures))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PurgedDocuments))
}

func TestRegisterTwiceFails(t *testing.T) {
	m := metric.New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}
