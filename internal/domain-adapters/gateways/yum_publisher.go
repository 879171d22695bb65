package gateways

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// repomdPath is the repository metadata descriptor written by createrepo
var repomdPath = filepath.Join("repodata", "repomd.xml")

// YumPublisher maintains an RPM repository: a flat package directory plus
// createrepo metadata and a detached signature over repomd.xml
type YumPublisher struct {
	runner      gateways.CommandRunner
	store       *ArtifactStore
	signer      gateways.Signer
	logger      interfaces.Logger
	baseDir     string
	packagesDir string
	packageGlob string
	rpm         string
	createrepo  string
	dryRun      bool
}

// YumPublisherConfig holds configuration for the publisher
type YumPublisherConfig struct {
	BaseDir     string
	PackagesDir string
	PackageGlob string
	RPM         string
	Createrepo  string
	// DryRun logs the package copy instead of performing it
	DryRun bool
}

// NewYumPublisher creates a new RPM repository publisher
func NewYumPublisher(
	runner gateways.CommandRunner,
	store *ArtifactStore,
	signer gateways.Signer,
	config YumPublisherConfig,
	logger interfaces.Logger,
) *YumPublisher {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	rpm := config.RPM
	if rpm == "" {
		rpm = "rpm"
	}
	createrepo := config.Createrepo
	if createrepo == "" {
		createrepo = "createrepo"
	}
	glob := config.PackageGlob
	if glob == "" {
		glob = "*.rpm"
	}

	return &YumPublisher{
		runner:      runner,
		store:       store,
		signer:      signer,
		logger:      logger,
		baseDir:     config.BaseDir,
		packagesDir: filepath.Join(config.BaseDir, config.PackagesDir),
		packageGlob: glob,
		rpm:         rpm,
		createrepo:  createrepo,
		dryRun:      config.DryRun,
	}
}

// Ingest copies the package byte-for-byte into the package directory
func (p *YumPublisher) Ingest(_ context.Context, artifactPath string) error {
	if p.dryRun {
		p.logger.Info("dry run, not copying", interfaces.F("path", artifactPath), interfaces.F("dir", p.packagesDir))
		return nil
	}
	dst, err := p.store.Copy(artifactPath, p.packagesDir)
	if err != nil {
		return fmt.Errorf("failed to copy %s into %s: %w", filepath.Base(artifactPath), p.packagesDir, err)
	}
	p.logger.Debug("copied package", interfaces.F("path", dst))
	return nil
}

// Finalize signs every package in the directory, rebuilds the repository
// metadata from the directory contents and signs repomd.xml. The first
// failing step aborts the rest.
func (p *YumPublisher) Finalize(ctx context.Context) error {
	packages, err := p.store.List(p.packagesDir, p.packageGlob)
	if err != nil {
		return fmt.Errorf("failed to list packages: %w", err)
	}

	if len(packages) > 0 {
		err := runTool(ctx, p.runner, gateways.Command{
			Name:        p.rpm,
			Args:        append([]string{"--addsign"}, packages...),
			Description: "addsign",
		})
		if err != nil {
			return fmt.Errorf("failed to sign packages: %w", err)
		}
	} else {
		p.logger.Info("no packages to sign", interfaces.F("dir", p.packagesDir))
	}

	err = runTool(ctx, p.runner, gateways.Command{
		Name:        p.createrepo,
		Args:        []string{p.baseDir + "/"},
		Description: "createrepo",
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild repository metadata: %w", err)
	}

	if _, err := p.signer.Sign(ctx, filepath.Join(p.baseDir, repomdPath)); err != nil {
		return fmt.Errorf("failed to sign repository metadata: %w", err)
	}

	p.logger.Info("repository metadata rebuilt",
		interfaces.F("dir", p.baseDir),
		interfaces.F("packages", len(packages)),
	)
	return nil
}
