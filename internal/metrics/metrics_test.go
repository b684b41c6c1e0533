package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordDetection("basil", 120*time.Millisecond)
	m.RecordDetection("basil", 80*time.Millisecond)
	m.RecordDetection("Unknown", 10*time.Millisecond)
	m.RecordVisit(StatusWatered)
	m.RecordVisit(StatusSkipped)
	m.RecordVisitError("camera")
	m.RecordIrrigation(30.88)

	assert.InDelta(t, 2, testutil.ToFloat64(m.detectionsTotal.WithLabelValues("basil")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.visitsTotal.WithLabelValues(StatusSkipped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.visitErrorsTotal.WithLabelValues("camera")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.detectionsTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordDetection("basil", time.Second)
	m.RecordVisit(StatusFailed)
	m.RecordVisitError("pump")
	m.RecordIrrigation(1)
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordVisit(StatusWatered)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `rover_visits_total{status="watered"} 1`))
}
