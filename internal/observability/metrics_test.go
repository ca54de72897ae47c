package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageWindowSnapshot(t *testing.T) {
	w := newStageWindow(8)
	w.Observe(StageCompletion, 500)
	w.Observe(StageCompletion, 4500)
	w.Observe(StageCompletion, 900)
	w.Observe(StageMemoryRead, 3)
	w.Observe(StageTotal, 5000)
	w.Observe(StageTotal, 1000)
	w.Observe("warmup", 7)
	w.ObserveIndicator(IndicatorMemoryDegraded)
	w.ObserveIndicator(IndicatorLinkHit)
	w.ObserveIndicator(IndicatorLinkHit)

	snap := w.Snapshot()
	assert.Equal(t, 8, snap.Window)
	assert.Equal(t, 2, snap.Turns)

	order := make([]string, 0, len(snap.Stages))
	for _, s := range snap.Stages {
		order = append(order, s.Stage)
	}
	assert.Equal(t, []string{StageMemoryRead, StageCompletion, StageTotal, "warmup"}, order)

	c := snap.Stages[1]
	assert.Equal(t, 3, c.Samples)
	assert.Equal(t, 900.0, c.LastMS)
	assert.Equal(t, 900.0, c.P50MS)
	assert.Equal(t, 4500.0, c.P95MS)
	assert.Equal(t, 4500.0, c.MaxMS)
	assert.Equal(t, 4000.0, c.BudgetMS)
	assert.Equal(t, 1, c.OverBudget)
	assert.Zero(t, snap.Stages[3].BudgetMS)

	assert.Equal(t, []Indicator{
		{Name: IndicatorLinkHit, Count: 2, PerTurn: 1},
		{Name: IndicatorMemoryDegraded, Count: 1, PerTurn: 0.5},
	}, snap.Indicators)
}

func TestStageWindowKeepsMostRecent(t *testing.T) {
	w := newStageWindow(2)
	w.Observe(StagePersist, 1)
	w.Observe(StagePersist, 2)
	w.Observe(StagePersist, 30)

	snap := w.Snapshot()
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, 2, snap.Stages[0].Samples)
	assert.Equal(t, 16.0, snap.Stages[0].MeanMS)
	assert.Equal(t, 30.0, snap.Stages[0].LastMS)
	assert.Zero(t, snap.Turns)
}

func TestIndicatorsBeforeFirstTurn(t *testing.T) {
	w := newStageWindow(4)
	w.ObserveIndicator(IndicatorMemoryDegraded)
	w.ObserveIndicator("")

	snap := w.Snapshot()
	assert.Empty(t, snap.Stages)
	assert.Equal(t, []Indicator{{Name: IndicatorMemoryDegraded, Count: 1}}, snap.Indicators)
}

func TestMetricsHandlerExposesInstruments(t *testing.T) {
	m := NewMetrics("levo_test")
	m.HTTPRequests.WithLabelValues("/chat", "200").Inc()
	m.ObserveStage(StageCompletion, 120*time.Millisecond)

	// A second instance must not collide with the first.
	_ = NewMetrics("levo_test")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `levo_test_http_requests_total{code="200",route="/chat"} 1`)
	assert.Contains(t, string(body), "levo_test_completion_latency_ms_count 1")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage(StageTotal, time.Second)
	m.ObserveIndicator("x")
}
