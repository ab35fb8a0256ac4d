package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveHTTPRequest("GET", "/api/doctors", 200, 15*time.Millisecond)
	m.ImportRows(8, 2)
	m.MessageSent("sms", true)
	m.MessageSent("sms", false)
	m.CacheLookup(true)
	m.JobRun("reminders", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/doctors", "200")))
	assert.Equal(t, float64(8), testutil.ToFloat64(m.importRows.WithLabelValues("imported")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.importRows.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.messages.WithLabelValues("sms", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("reminders", "ok")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Second)
		m.ImportRows(1, 1)
		m.MessageSent("email", true)
		m.CacheLookup(false)
		m.JobRun("sync", false)
	})
	assert.NotNil(t, m.Handler())
}
