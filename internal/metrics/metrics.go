// Package metrics exposes simulation progress as Prometheus metrics, either
// written to a node_exporter textfile after a run or served over HTTP.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

// Registry holds all metrics for dynpop.
type Registry struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RoundsTotal      *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	RecoveriesTotal  *prometheus.CounterVec
	NodesByStatus    *prometheus.GaugeVec
	CurrentRound     *prometheus.GaugeVec
	PeakInfected     *prometheus.GaugeVec

	registry *prometheus.Registry
	mu       sync.Mutex
}

// NewRegistry creates a registry with every metric initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.RunsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynpop_runs_total",
			Help: "Completed simulation runs by model and termination reason",
		},
		[]string{"model", "reason"},
	)
	r.RunDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynpop_run_duration_seconds",
			Help:    "Wall-clock duration of simulation runs",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"model"},
	)
	r.RoundsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynpop_rounds_total",
			Help: "Rounds produced, including round 0",
		},
		[]string{"model"},
	)
	r.TransitionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynpop_transitions_total",
			Help: "Nodes that adopted or became infected",
		},
		[]string{"model"},
	)
	r.RecoveriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynpop_recoveries_total",
			Help: "Infected nodes that recovered",
		},
		[]string{"model"},
	)
	r.NodesByStatus = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dynpop_nodes",
			Help: "Nodes per status in the latest round",
		},
		[]string{"model", "status"},
	)
	r.CurrentRound = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dynpop_round",
			Help: "Index of the latest round",
		},
		[]string{"model"},
	)
	r.PeakInfected = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dynpop_peak_infected",
			Help: "Largest infected count seen in the latest run",
		},
		[]string{"model"},
	)

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Observer returns a simulation observer that updates the per-round
// metrics for model.
func (r *Registry) Observer(model models.Model) simulation.Observer {
	m := string(model)
	return func(snap models.RoundSnapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.RoundsTotal.WithLabelValues(m).Inc()
		r.TransitionsTotal.WithLabelValues(m).Add(float64(snap.NewTransitions))
		r.RecoveriesTotal.WithLabelValues(m).Add(float64(snap.Recoveries))
		r.CurrentRound.WithLabelValues(m).Set(float64(snap.Round))
		for st, n := range snap.Counts() {
			r.NodesByStatus.WithLabelValues(m, st.String()).Set(float64(n))
		}
	}
}

// RecordRun records a finished run.
func (r *Registry) RecordRun(summary simulation.Summary, duration time.Duration) {
	m := string(summary.Model)
	r.RunsTotal.WithLabelValues(m, string(summary.Reason)).Inc()
	r.RunDuration.WithLabelValues(m).Observe(duration.Seconds())
	r.PeakInfected.WithLabelValues(m).Set(float64(summary.PeakInfected))
}

// WriteToTextfile writes every metric in the text exposition format,
// atomically replacing path.
func (r *Registry) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Exporter exposes a registry via HTTP.
type Exporter struct {
	server *http.Server
}

// NewExporter creates an exporter serving /metrics on addr.
func NewExporter(addr string, r *Registry) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	return &Exporter{server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Handler returns the HTTP handler.
func (e *Exporter) Handler() http.Handler { return e.server.Handler }

// Serve listens until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.server.Shutdown(shutdownCtx)
	}()

	err := e.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
