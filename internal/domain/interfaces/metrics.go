package interfaces

import "time"

// MetricsRecorder records the outcome of a sync run
type MetricsRecorder interface {
	// RecordArtifact counts one artifact reaching a terminal outcome in a bucket
	RecordArtifact(bucket, outcome string)

	// RecordBucketFailure counts a failed stage for a bucket
	RecordBucketFailure(bucket, stage string)

	// RecordRun records the overall result of a run
	RecordRun(success bool, duration time.Duration)
}

// NoOpMetrics discards every measurement
type NoOpMetrics struct{}

// RecordArtifact does nothing
func (NoOpMetrics) RecordArtifact(_, _ string) {}

// RecordBucketFailure does nothing
func (NoOpMetrics) RecordBucketFailure(_, _ string) {}

// RecordRun does nothing
func (NoOpMetrics) RecordRun(_ bool, _ time.Duration) {}
