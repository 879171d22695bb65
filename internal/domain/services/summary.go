package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// Process exit codes for a sync run
const (
	ExitOK            = 0
	ExitFatal         = 1
	ExitUsage         = 2
	ExitBucketFailure = 3
)

// BucketStatus is the outcome of a run for one bucket
type BucketStatus string

// Bucket outcomes
const (
	BucketIdle   BucketStatus = "idle" // no artifact for this bucket in the release
	BucketOK     BucketStatus = "ok"
	BucketFailed BucketStatus = "failed"
)

// Stages at which a bucket can fail
const (
	StageSign     = "sign"
	StageIngest   = "ingest"
	StageFinalize = "finalize"
)

// BucketReport accumulates what happened to one bucket during a run
type BucketReport struct {
	Bucket      entities.Bucket       `json:"bucket"`
	Format      entities.BucketFormat `json:"format"`
	Status      BucketStatus          `json:"status"`
	Downloaded  int                   `json:"downloaded"`
	Existing    int                   `json:"existing"`
	Signed      int                   `json:"signed"`
	Ingested    int                   `json:"ingested"`
	Finalized   bool                  `json:"finalized"`
	FailedStage string                `json:"failed_stage,omitempty"`
	Errors      []string              `json:"errors,omitempty"`

	errs []error
}

// RunSummary is the per-bucket record of a single sync pass
type RunSummary struct {
	RunID      string
	ReleaseTag string
	StartedAt  time.Time
	Duration   time.Duration
	Skipped    []string // artifact names no rule matched

	order   []entities.Bucket
	buckets map[entities.Bucket]*BucketReport
	fatal   error
}

// NewRunSummary creates an empty summary covering the given buckets
func NewRunSummary(runID string, specs []entities.BucketSpec) *RunSummary {
	s := &RunSummary{
		RunID:     runID,
		StartedAt: time.Now(),
		buckets:   make(map[entities.Bucket]*BucketReport, len(specs)),
	}
	for _, spec := range specs {
		s.order = append(s.order, spec.Name)
		s.buckets[spec.Name] = &BucketReport{
			Bucket: spec.Name,
			Format: spec.Format,
			Status: BucketIdle,
		}
	}
	return s
}

// Bucket returns the report for b, creating one if the bucket was unknown
func (s *RunSummary) Bucket(b entities.Bucket) *BucketReport {
	r, ok := s.buckets[b]
	if !ok {
		r = &BucketReport{Bucket: b, Status: BucketIdle}
		s.buckets[b] = r
		s.order = append(s.order, b)
	}
	return r
}

// Reports returns bucket reports in bucket order
func (s *RunSummary) Reports() []*BucketReport {
	reports := make([]*BucketReport, 0, len(s.order))
	for _, b := range s.order {
		reports = append(reports, s.buckets[b])
	}
	return reports
}

// Touch marks a bucket as having received work this run
func (s *RunSummary) Touch(b entities.Bucket) {
	r := s.Bucket(b)
	if r.Status == BucketIdle {
		r.Status = BucketOK
	}
}

// Fail records a bucket-scoped failure. The first failing stage is kept.
func (s *RunSummary) Fail(b entities.Bucket, stage string, err error) {
	r := s.Bucket(b)
	if r.Status != BucketFailed {
		r.FailedStage = stage
	}
	r.Status = BucketFailed
	r.errs = append(r.errs, err)
	r.Errors = append(r.Errors, err.Error())
}

// Failed reports whether b has failed this run
func (s *RunSummary) Failed(b entities.Bucket) bool {
	r, ok := s.buckets[b]
	return ok && r.Status == BucketFailed
}

// SetFatal records a run-fatal error
func (s *RunSummary) SetFatal(err error) {
	s.fatal = err
}

// Fatal returns the run-fatal error, if any
func (s *RunSummary) Fatal() error {
	return s.fatal
}

// FatalTransient reports whether the run-fatal error was a feed failure that
// a later run may not hit again (network error, 429 or 5xx)
func (s *RunSummary) FatalTransient() bool {
	var fetchErr *entities.FetchError
	return errors.As(s.fatal, &fetchErr) && fetchErr.Transient()
}

// Err aggregates the fatal error and every bucket failure
func (s *RunSummary) Err() error {
	var result *multierror.Error
	if s.fatal != nil {
		result = multierror.Append(result, s.fatal)
	}
	for _, r := range s.Reports() {
		for _, err := range r.errs {
			result = multierror.Append(result, fmt.Errorf("bucket %s: %w", r.Bucket, err))
		}
	}
	return result.ErrorOrNil()
}

// Success reports whether the run completed with no failure of any kind
func (s *RunSummary) Success() bool {
	return s.ExitCode() == ExitOK
}

// ExitCode maps the run outcome onto the process exit status
func (s *RunSummary) ExitCode() int {
	if s.fatal != nil {
		return ExitFatal
	}
	for _, r := range s.buckets {
		if r.Status == BucketFailed {
			return ExitBucketFailure
		}
	}
	return ExitOK
}

// FailedBuckets lists the buckets that failed, in bucket order
func (s *RunSummary) FailedBuckets() []entities.Bucket {
	var failed []entities.Bucket
	for _, r := range s.Reports() {
		if r.Status == BucketFailed {
			failed = append(failed, r.Bucket)
		}
	}
	return failed
}

// String renders a short human-readable summary
func (s *RunSummary) String() string {
	var b strings.Builder
	if s.fatal != nil {
		fmt.Fprintf(&b, "Sync aborted: %v\n", s.fatal)
	} else if s.Success() {
		fmt.Fprintf(&b, "Sync complete (release %s)\n", s.ReleaseTag)
	} else {
		fmt.Fprintf(&b, "Sync finished with failures (release %s)\n", s.ReleaseTag)
	}

	for _, r := range s.Reports() {
		fmt.Fprintf(&b, "  %-10s %-6s downloaded=%d existing=%d signed=%d ingested=%d",
			r.Bucket, r.Status, r.Downloaded, r.Existing, r.Signed, r.Ingested)
		if r.Finalized {
			b.WriteString(" finalized")
		}
		if r.FailedStage != "" {
			fmt.Fprintf(&b, " failed_stage=%s", r.FailedStage)
		}
		b.WriteString("\n")
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "  skipped: %s\n", strings.Join(s.Skipped, ", "))
	}
	return b.String()
}

// MarshalJSON renders the summary for --summary-file
func (s *RunSummary) MarshalJSON() ([]byte, error) {
	fatal := ""
	if s.fatal != nil {
		fatal = s.fatal.Error()
	}
	return json.Marshal(struct {
		RunID           string          `json:"run_id"`
		ReleaseTag      string          `json:"release_tag"`
		StartedAt       time.Time       `json:"started_at"`
		DurationSeconds float64         `json:"duration_seconds"`
		ExitCode        int             `json:"exit_code"`
		Fatal           string          `json:"fatal,omitempty"`
		FatalTransient  bool            `json:"fatal_transient,omitempty"`
		Skipped         []string        `json:"skipped,omitempty"`
		Buckets         []*BucketReport `json:"buckets"`
	}{
		RunID:           s.RunID,
		ReleaseTag:      s.ReleaseTag,
		StartedAt:       s.StartedAt,
		DurationSeconds: s.Duration.Seconds(),
		ExitCode:        s.ExitCode(),
		Fatal:           fatal,
		FatalTransient:  s.FatalTransient(),
		Skipped:         s.Skipped,
		Buckets:         s.Reports(),
	})
}
