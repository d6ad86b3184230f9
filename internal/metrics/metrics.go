package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsight_runs_total",
		Help: "Pipeline runs by final outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sportsight_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ScoredFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsight_scored_frames_total",
		Help: "Significant scored frames across all runs",
	})

	ClipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsight_clips_total",
		Help: "Clip extraction results by status",
	}, []string{"status"})

	CaptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsight_captions_total",
		Help: "Caption results by backend and status",
	}, []string{"backend", "status"})

	RunInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sportsight_run_in_flight",
		Help: "1 while a pipeline run is executing",
	})
)

// Status maps a per-item outcome to a label value.
func Status(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
