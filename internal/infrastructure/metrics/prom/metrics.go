// Package prom provides Prometheus run metrics for pagewatch.
package prom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

const namespace = "pagewatch"

// Recorder implements ports.RunRecorder on its own registry, so a one-shot
// CLI process pushes only pagewatch series.
type Recorder struct {
	registry *prometheus.Registry
	pushURL  string
	job      string
	logger   *slog.Logger

	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	selected prometheus.Histogram
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder(cfg config.MetricsConfig, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pushURL:  cfg.PushgatewayURL,
		job:      cfg.Job,
		logger:   logger.With("component", "metrics"),

		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs",
			},
			[]string{"status", "state"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds, including the approval wait",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		selected: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidates_selected",
				Help:      "Distribution of selected candidates per run",
				Buckets:   []float64{0, 1, 2, 3},
			},
		),
	}
}

// Registry exposes the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRun records one finished run.
func (r *Recorder) RecordRun(result *entities.PipelineResult, state entities.RunState, elapsed time.Duration) {
	if result == nil {
		return
	}
	r.runs.WithLabelValues(string(result.Status), string(state)).Inc()
	r.duration.Observe(elapsed.Seconds())
	r.selected.Observe(float64(len(result.Highlights)))
}

// Push sends the registry to the configured Pushgateway. It is a no-op when
// no gateway is configured.
func (r *Recorder) Push(ctx context.Context) error {
	if r.pushURL == "" {
		return nil
	}
	if r.job == "" {
		return errors.New("metrics job is required")
	}

	err := push.New(r.pushURL, r.job).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	r.logger.Debug("metrics pushed", "gateway", r.pushURL, "job", r.job)
	return nil
}
