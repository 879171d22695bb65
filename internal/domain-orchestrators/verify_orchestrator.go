package orchestrators

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// TreeReader interface for read access to the repository tree
type TreeReader interface {
	BucketDir(bucket entities.Bucket) string
	List(dir, pattern string) ([]string, error)
	Exists(path string) (bool, error)
	IsStale(bucket entities.Bucket) bool
}

// SignatureVerifier interface for detached signature checks
type SignatureVerifier interface {
	VerifySignatureFromFile(filePath, sigPath string) error
}

// VerifyFailure describes one file whose signature did not check out
type VerifyFailure struct {
	Path string
	Err  error
}

// VerifyReport contains the result of verifying a repository tree
type VerifyReport struct {
	Checked  int
	Failures []VerifyFailure
	Stale    []entities.Bucket
}

// OK reports whether every signature verified and no bucket is stale
func (r *VerifyReport) OK() bool {
	return len(r.Failures) == 0 && len(r.Stale) == 0
}

// VerifyOrchestrator checks the detached signatures of a published tree
type VerifyOrchestrator struct {
	tree     TreeReader
	verifier SignatureVerifier
	buckets  []entities.BucketSpec
	logger   interfaces.Logger
}

// NewVerifyOrchestrator creates a new verify orchestrator
func NewVerifyOrchestrator(
	tree TreeReader,
	verifier SignatureVerifier,
	buckets []entities.BucketSpec,
	logger interfaces.Logger,
) *VerifyOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &VerifyOrchestrator{
		tree:     tree,
		verifier: verifier,
		buckets:  buckets,
		logger:   logger,
	}
}

// VerifyTree verifies every artifact signature in every bucket, plus the
// repomd.xml signature of RPM buckets
func (o *VerifyOrchestrator) VerifyTree(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	for _, spec := range o.buckets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dir := o.tree.BucketDir(spec.Name)
		files, err := o.tree.List(dir, "*")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				o.logger.Warn("bucket directory missing", interfaces.F("bucket", spec.Name))
				continue
			}
			return report, err
		}

		for _, file := range files {
			if strings.HasSuffix(file, gateways.SignatureSuffix) {
				continue
			}
			o.check(report, file)
		}

		if spec.Format == entities.FormatRPM {
			repomd := filepath.Join(dir, "repodata", "repomd.xml")
			if ok, _ := o.tree.Exists(repomd); ok {
				o.check(report, repomd)
			}
		}

		if o.tree.IsStale(spec.Name) {
			report.Stale = append(report.Stale, spec.Name)
			o.logger.Warn("bucket metadata is stale", interfaces.F("bucket", spec.Name))
		}
	}

	return report, nil
}

func (o *VerifyOrchestrator) check(report *VerifyReport, file string) {
	report.Checked++
	if err := o.verifier.VerifySignatureFromFile(file, file+gateways.SignatureSuffix); err != nil {
		report.Failures = append(report.Failures, VerifyFailure{Path: file, Err: err})
		o.logger.Error("signature check failed", interfaces.F("path", file), interfaces.F("error", err))
		return
	}
	o.logger.Debug("signature ok", interfaces.F("path", file))
}
