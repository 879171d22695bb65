// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
	"github.com/ochairo/reposync/internal/domain/services"
)

// ArtifactStore interface for the on-disk repository tree
type ArtifactStore interface {
	EnsureBucketDirectories() error
	LocalPath(bucket entities.Bucket, name string) string
	Exists(path string) (bool, error)
	Write(path string, r io.Reader) (int64, error)
	Checksum(path string) (string, error)
	Remove(path string) error
	MarkStale(bucket entities.Bucket, reason string) error
	ClearStale(bucket entities.Bucket) error
}

// Publisher interface for a packaging-format repository
type Publisher interface {
	// Ingest adds one local artifact to the repository
	Ingest(ctx context.Context, artifactPath string) error
	// Finalize rebuilds and signs repository metadata; runs once per run
	Finalize(ctx context.Context) error
}

// ChecksumVerifier interface for release checksum manifests
type ChecksumVerifier interface {
	ParseManifest(r io.Reader) (map[string]string, error)
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
}

// Artifact outcomes recorded in metrics
const (
	outcomeSkipped   = "skipped"
	outcomePublished = "published"
	outcomeHeld      = "held"
	outcomeFailed    = "failed"
)

// stageStore is the failure stage for local filesystem errors on an artifact
const stageStore = "store"

// SyncOrchestrator drives one end-to-end synchronization pass
type SyncOrchestrator struct {
	classifier *services.Classifier
	store      ArtifactStore
	feed       gateways.ReleaseFeed
	signer     gateways.Signer
	publishers map[entities.Bucket]Publisher
	checksums  ChecksumVerifier
	manifest   string
	metrics    interfaces.MetricsRecorder
	logger     interfaces.Logger
	newRunID   func() string
}

// SyncOrchestratorConfig holds the optional collaborators of the orchestrator
type SyncOrchestratorConfig struct {
	// Publishers maps each packaging-format bucket to its publisher
	Publishers map[entities.Bucket]Publisher
	// Checksums verifies fresh downloads against the release asset named
	// ChecksumsAsset; verification is off when either is unset
	Checksums      ChecksumVerifier
	ChecksumsAsset string
	Metrics        interfaces.MetricsRecorder
	Logger         interfaces.Logger
	// RunID overrides run ID generation (tests)
	RunID func() string
}

// NewSyncOrchestrator creates a new sync orchestrator
func NewSyncOrchestrator(
	classifier *services.Classifier,
	store ArtifactStore,
	feed gateways.ReleaseFeed,
	signer gateways.Signer,
	config SyncOrchestratorConfig,
) *SyncOrchestrator {
	publishers := config.Publishers
	if publishers == nil {
		publishers = make(map[entities.Bucket]Publisher)
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = interfaces.NoOpMetrics{}
	}
	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	runID := config.RunID
	if runID == nil {
		runID = uuid.NewString
	}

	return &SyncOrchestrator{
		classifier: classifier,
		store:      store,
		feed:       feed,
		signer:     signer,
		publishers: publishers,
		checksums:  config.Checksums,
		manifest:   config.ChecksumsAsset,
		metrics:    metrics,
		logger:     logger,
		newRunID:   runID,
	}
}

// SyncResult contains the result of a sync pass
type SyncResult struct {
	Release *entities.Release
	Summary *services.RunSummary
}

// ExitCode returns the process exit status for the run
func (r *SyncResult) ExitCode() int {
	return r.Summary.ExitCode()
}

// Sync executes one pass: ensure directories, fetch the latest release,
// process every artifact in feed order, then finalize each packaging-format
// bucket once. A fetch failure aborts the run; sign, ingest and finalize
// failures only fail their bucket.
func (o *SyncOrchestrator) Sync(ctx context.Context) (*SyncResult, error) {
	startTime := time.Now()
	summary := services.NewRunSummary(o.newRunID(), o.classifier.Buckets())
	result := &SyncResult{Summary: summary}
	log := o.logger.With(interfaces.F("run_id", summary.RunID))

	defer func() {
		summary.Duration = time.Since(startTime)
		o.metrics.RecordRun(summary.Success(), summary.Duration)
	}()

	// Step 1: bucket directories exist before any classification result is used
	if err := o.store.EnsureBucketDirectories(); err != nil {
		return result, o.abort(log, summary, fmt.Errorf("failed to prepare repository tree: %w", err))
	}

	// Step 2: one release snapshot per run
	release, err := o.feed.FetchLatestRelease(ctx)
	if err != nil {
		return result, o.abort(log, summary, fmt.Errorf("failed to fetch latest release: %w", err))
	}
	result.Release = release
	summary.ReleaseTag = release.Tag
	log.Info("fetched latest release",
		interfaces.F("tag", release.Tag),
		interfaces.F("assets", len(release.Assets)),
	)

	sums, err := o.loadManifest(ctx, log, release)
	if err != nil {
		return result, o.abort(log, summary, err)
	}

	// Step 3: per-artifact pipeline, in feed order
	for _, artifact := range release.Assets {
		if err := ctx.Err(); err != nil {
			return result, o.abort(log, summary, err)
		}
		if err := o.processArtifact(ctx, log, summary, sums, artifact); err != nil {
			return result, o.abort(log, summary, err)
		}
	}

	// Step 4: finalize from directory contents, once per packaging-format bucket
	o.finalize(ctx, log, summary)

	if failed := summary.FailedBuckets(); len(failed) > 0 {
		log.Error("sync finished with bucket failures", interfaces.F("buckets", failed))
	} else {
		log.Info("sync complete", interfaces.F("duration", time.Since(startTime).Round(time.Millisecond)))
	}
	return result, summary.Err()
}

func (o *SyncOrchestrator) abort(log interfaces.Logger, summary *services.RunSummary, err error) error {
	summary.SetFatal(err)
	log.Error("sync aborted", interfaces.F("error", err))
	return err
}

// processArtifact moves one artifact through classify, download, sign and
// ingest. Only a fetch failure is returned; everything else is recorded
// against the artifact's bucket.
func (o *SyncOrchestrator) processArtifact(
	ctx context.Context,
	log interfaces.Logger,
	summary *services.RunSummary,
	sums map[string]string,
	artifact *entities.Artifact,
) error {
	log = log.With(interfaces.F("artifact", artifact.Name))

	bucket := o.classifier.Classify(artifact.Name)
	if bucket == entities.Unclassified {
		artifact.State = entities.StateSkipped
		summary.Skipped = append(summary.Skipped, artifact.Name)
		o.metrics.RecordArtifact("none", outcomeSkipped)
		log.Info("no classification rule matches, skipping")
		return nil
	}

	artifact.Bucket = bucket
	artifact.Path = o.store.LocalPath(bucket, artifact.Name)
	summary.Touch(bucket)
	report := summary.Bucket(bucket)
	log = log.With(interfaces.F("bucket", bucket))

	present, err := o.store.Exists(artifact.Path)
	if err != nil {
		o.failArtifact(log, summary, bucket, stageStore, err)
		return nil
	}

	if present {
		report.Existing++
		log.Debug("already present, not downloading", interfaces.F("path", artifact.Path))
	} else {
		if err := o.download(ctx, log, sums, artifact); err != nil {
			var fsErr *entities.FilesystemError
			if errors.As(err, &fsErr) {
				o.failArtifact(log, summary, bucket, stageStore, err)
				return nil
			}
			return err
		}
		report.Downloaded++
	}

	// Signing and ingestion repeat on every run, whether or not the file is new
	if _, err := o.signer.Sign(ctx, artifact.Path); err != nil {
		o.failArtifact(log, summary, bucket, services.StageSign, err)
		return nil
	}
	artifact.State = entities.StateSigned
	report.Signed++

	publisher, ok := o.publishers[bucket]
	if !ok {
		// platform buckets are plain directories: the signed file is the publication
		artifact.State = entities.StatePublished
		o.metrics.RecordArtifact(string(bucket), outcomePublished)
		log.Info("published")
		return nil
	}

	if summary.Failed(bucket) {
		o.metrics.RecordArtifact(string(bucket), outcomeHeld)
		log.Warn("bucket already failed this run, not ingesting")
		return nil
	}

	if err := publisher.Ingest(ctx, artifact.Path); err != nil {
		o.failArtifact(log, summary, bucket, services.StageIngest, err)
		return nil
	}
	artifact.State = entities.StatePublished
	report.Ingested++
	o.metrics.RecordArtifact(string(bucket), outcomePublished)
	log.Info("published")
	return nil
}

// loadManifest downloads and parses the release checksum manifest. A release
// without one yields a nil map and downloads go unverified.
func (o *SyncOrchestrator) loadManifest(
	ctx context.Context,
	log interfaces.Logger,
	release *entities.Release,
) (map[string]string, error) {
	if o.checksums == nil || o.manifest == "" {
		return nil, nil
	}

	var asset *entities.Artifact
	for _, a := range release.Assets {
		if a.Name == o.manifest {
			asset = a
			break
		}
	}
	if asset == nil {
		log.Warn("release has no checksum manifest, downloads are unverified",
			interfaces.F("manifest", o.manifest))
		return nil, nil
	}

	body, err := o.feed.DownloadArtifact(ctx, asset.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download checksum manifest: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer body.Close()

	sums, err := o.checksums.ParseManifest(body)
	if err != nil {
		return nil, &entities.FetchError{Op: "download", URL: asset.DownloadURL, Malformed: true, Err: err}
	}
	log.Debug("loaded checksum manifest", interfaces.F("entries", len(sums)))
	return sums, nil
}

// download streams the artifact into the store and, when the release
// publishes a checksum for it, verifies the result
func (o *SyncOrchestrator) download(
	ctx context.Context,
	log interfaces.Logger,
	sums map[string]string,
	artifact *entities.Artifact,
) error {
	log.Info("downloading", interfaces.F("url", artifact.DownloadURL))

	body, err := o.feed.DownloadArtifact(ctx, artifact.DownloadURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", artifact.Name, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer body.Close()

	src := &readTracker{r: body}
	written, err := o.store.Write(artifact.Path, src)
	if err != nil {
		if src.err != nil {
			return &entities.FetchError{Op: "download", URL: artifact.DownloadURL, Err: src.err}
		}
		return fmt.Errorf("failed to store %s: %w", artifact.Name, err)
	}
	expected, verified := sums[artifact.Name]
	if verified {
		if err := o.checksums.VerifyChecksum(ctx, artifact.Path, expected); err != nil {
			if rmErr := o.store.Remove(artifact.Path); rmErr != nil {
				log.Error("failed to remove corrupt download", interfaces.F("error", rmErr))
			}
			return &entities.FetchError{Op: "download", URL: artifact.DownloadURL, Malformed: true, Err: err}
		}
	} else if sums != nil {
		log.Warn("no checksum listed for artifact")
	}
	artifact.State = entities.StateDownloaded

	fields := []interfaces.Field{
		interfaces.F("path", artifact.Path),
		interfaces.F("size", humanize.Bytes(uint64(written))),
		interfaces.F("verified", verified),
	}
	if sum, err := o.store.Checksum(artifact.Path); err == nil {
		fields = append(fields, interfaces.F("sha256", sum))
	}
	log.Info("downloaded", fields...)
	return nil
}

// finalize runs Finalize once for every packaging-format bucket that has not
// failed, and marks failed buckets as having stale metadata
func (o *SyncOrchestrator) finalize(ctx context.Context, log interfaces.Logger, summary *services.RunSummary) {
	for _, spec := range o.classifier.Buckets() {
		publisher, ok := o.publishers[spec.Name]
		if !ok {
			continue
		}
		blog := log.With(interfaces.F("bucket", spec.Name))

		if summary.Failed(spec.Name) {
			o.markStale(blog, spec.Name, summary.Bucket(spec.Name).FailedStage)
			continue
		}

		if err := publisher.Finalize(ctx); err != nil {
			summary.Fail(spec.Name, services.StageFinalize, err)
			o.metrics.RecordBucketFailure(string(spec.Name), services.StageFinalize)
			blog.Error("finalize failed", interfaces.F("error", err))
			o.markStale(blog, spec.Name, services.StageFinalize)
			continue
		}

		summary.Bucket(spec.Name).Finalized = true
		if err := o.store.ClearStale(spec.Name); err != nil {
			blog.Warn("failed to clear stale marker", interfaces.F("error", err))
		}
	}
}

func (o *SyncOrchestrator) failArtifact(
	log interfaces.Logger,
	summary *services.RunSummary,
	bucket entities.Bucket,
	stage string,
	err error,
) {
	summary.Fail(bucket, stage, err)
	o.metrics.RecordArtifact(string(bucket), outcomeFailed)
	o.metrics.RecordBucketFailure(string(bucket), stage)
	log.Error(stage+" failed", interfaces.F("error", err))
}

func (o *SyncOrchestrator) markStale(log interfaces.Logger, bucket entities.Bucket, stage string) {
	if err := o.store.MarkStale(bucket, "failed at "+stage); err != nil {
		log.Error("failed to mark metadata stale", interfaces.F("error", err))
		return
	}
	log.Warn("repository metadata marked stale", interfaces.F("stage", stage))
}

// readTracker remembers a read error so a broken download can be told apart
// from a failed local write
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}
