package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

func valueOf(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	m := <-ch
	require.NotNil(t, m, "collector produced no metric")
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func twoNodeRun(t *testing.T, r *Registry) *simulation.Result {
	t.Helper()
	cfg := simulation.DefaultConfig()
	cfg.Model = models.ModelEpidemic
	cfg.Initiators = []string{"0"}
	cfg.Probability = 1
	cfg.Lifespan = 2
	seed := uint64(1)
	cfg.Seed = &seed

	result := simulation.RunScenario(t, simulation.Scenario{
		Edges:   []simulation.EdgeSpec{{Source: "0", Target: "1"}},
		Config:  cfg,
		Options: []simulation.Option{simulation.WithObserver(r.Observer(cfg.Model))},
	})
	r.RecordRun(result.Summary, 10*time.Millisecond)
	return result
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.NotNil(t, r.RunsTotal)
	assert.NotNil(t, r.NodesByStatus)
	assert.NotNil(t, r.GetPrometheusRegistry())
}

func TestObserverTracksRounds(t *testing.T) {
	r := NewRegistry()
	result := twoNodeRun(t, r)
	m := string(models.ModelEpidemic)

	assert.Equal(t, float64(len(result.Rounds)), valueOf(t, r.RoundsTotal.WithLabelValues(m)))
	assert.Equal(t, float64(1), valueOf(t, r.TransitionsTotal.WithLabelValues(m)))
	assert.Equal(t, float64(2), valueOf(t, r.RecoveriesTotal.WithLabelValues(m)))
	assert.Equal(t, float64(3), valueOf(t, r.CurrentRound.WithLabelValues(m)))
	assert.Equal(t, float64(2), valueOf(t, r.NodesByStatus.WithLabelValues(m, "recovered")))
	assert.Equal(t, float64(0), valueOf(t, r.NodesByStatus.WithLabelValues(m, "infected")))
}

func TestRecordRun(t *testing.T) {
	r := NewRegistry()
	twoNodeRun(t, r)
	m := string(models.ModelEpidemic)

	assert.Equal(t, float64(1), valueOf(t, r.RunsTotal.WithLabelValues(m, string(simulation.ReasonFixedPoint))))
	assert.Equal(t, float64(2), valueOf(t, r.PeakInfected.WithLabelValues(m)))
}

func TestWriteToTextfile(t *testing.T) {
	r := NewRegistry()
	twoNodeRun(t, r)

	path := filepath.Join(t.TempDir(), "dynpop.prom")
	require.NoError(t, r.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `dynpop_runs_total{model="covid",reason="fixed_point"} 1`)
	assert.Contains(t, text, `dynpop_nodes{model="covid",status="recovered"} 2`)
	assert.Contains(t, text, "dynpop_run_duration_seconds_bucket")
}

func TestWriteToTextfileBadPath(t *testing.T) {
	r := NewRegistry()
	err := r.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}

func TestExporterHandler(t *testing.T) {
	r := NewRegistry()
	twoNodeRun(t, r)

	e := NewExporter("localhost:0", r)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "dynpop_rounds_total"))
}
