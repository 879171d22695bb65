// Package prometheus implements the metrics recorder with Prometheus
// collectors, exported through the node_exporter textfile collector.
package prometheus

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements MetricsRecorder using Prometheus metrics
type Recorder struct {
	registry *prometheus.Registry

	artifactsTotal      *prometheus.CounterVec
	bucketFailuresTotal *prometheus.CounterVec
	runsTotal           *prometheus.CounterVec
	lastRunSuccess      prometheus.Gauge
	lastRunTimestamp    prometheus.Gauge
	runDuration         prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		artifactsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposync_artifacts_total",
				Help: "Artifacts processed, by bucket and outcome",
			},
			[]string{"bucket", "outcome"},
		),
		bucketFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposync_bucket_failures_total",
				Help: "Bucket-scoped failures, by bucket and stage",
			},
			[]string{"bucket", "stage"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposync_runs_total",
				Help: "Sync runs, by success",
			},
			[]string{"success"},
		),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reposync_last_run_success",
			Help: "1 if the last sync run completed without failures",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reposync_last_run_timestamp_seconds",
			Help: "Unix time at which the last sync run finished",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reposync_run_duration_seconds",
			Help: "Duration of the last sync run in seconds",
		}),
	}

	r.registry.MustRegister(
		r.artifactsTotal,
		r.bucketFailuresTotal,
		r.runsTotal,
		r.lastRunSuccess,
		r.lastRunTimestamp,
		r.runDuration,
	)
	return r
}

// Registry returns the registry holding every reposync collector
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordArtifact counts one artifact outcome
func (r *Recorder) RecordArtifact(bucket, outcome string) {
	r.artifactsTotal.WithLabelValues(bucket, outcome).Inc()
}

// RecordBucketFailure counts one failed stage
func (r *Recorder) RecordBucketFailure(bucket, stage string) {
	r.bucketFailuresTotal.WithLabelValues(bucket, stage).Inc()
}

// RecordRun records the outcome of a whole run
func (r *Recorder) RecordRun(success bool, duration time.Duration) {
	r.runsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
	r.lastRunTimestamp.SetToCurrentTime()
	r.runDuration.Set(duration.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically, as the textfile collector requires.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
