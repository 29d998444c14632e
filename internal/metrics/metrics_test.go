package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("Register", OutcomeSuccess)
	m.ObserveOperation("Register", OutcomeSuccess)
	m.ObserveOperation("Transfer", "PRICE_MISMATCH")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("Register", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("Transfer", "PRICE_MISMATCH")))
}

func TestMetrics_ObserveCommit(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCommit("SetVerified", 20*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.CommitDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveOperation("Register", OutcomeSuccess)
		m.ObserveCommit("Register", time.Second)
		m.ObserveStep(OutcomeSuccess)
	})
}

func TestNewServer_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveStep(OutcomeSuccess)

	srv := NewServer(":0", reg)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `registry_steps_consumed_total{outcome="success"} 1`))
}
