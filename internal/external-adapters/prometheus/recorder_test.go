package prometheus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.RecordArtifact("apt", "published")
	r.RecordArtifact("apt", "published")
	r.RecordArtifact("yum", "held")
	r.RecordBucketFailure("yum", "sign")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.artifactsTotal.WithLabelValues("apt", "published")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.artifactsTotal.WithLabelValues("yum", "held")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.bucketFailuresTotal.WithLabelValues("yum", "sign")))
	assert.Equal(t, 3, testutil.CollectAndCount(r.artifactsTotal)+testutil.CollectAndCount(r.bucketFailuresTotal))
}

func TestRecorder_RecordRun(t *testing.T) {
	tests := []struct {
		name    string
		success bool
		want    float64
	}{
		{"successful run", true, 1},
		{"failed run", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecorder()
			r.RecordRun(tt.success, 1500*time.Millisecond)

			assert.Equal(t, tt.want, testutil.ToFloat64(r.lastRunSuccess))
			assert.Equal(t, 1.5, testutil.ToFloat64(r.runDuration))
			assert.Greater(t, testutil.ToFloat64(r.lastRunTimestamp), float64(0))
		})
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.RecordArtifact("apt", "published")
	r.RecordRun(true, time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "reposync.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, `reposync_artifacts_total{bucket="apt",outcome="published"} 1`)
	assert.Contains(t, text, "reposync_last_run_success 1")
	assert.Contains(t, text, `reposync_runs_total{success="true"} 1`)
}
