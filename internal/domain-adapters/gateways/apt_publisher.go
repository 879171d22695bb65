package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// AptPublisher ingests Debian packages into a reprepro-managed repository
type AptPublisher struct {
	runner   gateways.CommandRunner
	reprepro string
	baseDir  string
	codename string
}

// NewAptPublisher creates a publisher for the repository rooted at baseDir
func NewAptPublisher(runner gateways.CommandRunner, reprepro, baseDir, codename string) *AptPublisher {
	if reprepro == "" {
		reprepro = "reprepro"
	}
	return &AptPublisher{
		runner:   runner,
		reprepro: reprepro,
		baseDir:  baseDir,
		codename: codename,
	}
}

// Ingest adds a package to the configured distribution. Files no longer
// referenced by any distribution are kept in the pool.
func (p *AptPublisher) Ingest(ctx context.Context, artifactPath string) error {
	err := runTool(ctx, p.runner, gateways.Command{
		Name: p.reprepro,
		Args: []string{
			"--keepunreferencedfiles",
			"-b", p.baseDir + "/",
			"includedeb", p.codename, artifactPath,
		},
		Description: "includedeb",
	})
	if err != nil {
		return fmt.Errorf("failed to include %s: %w", artifactPath, err)
	}
	return nil
}

// Finalize does nothing: reprepro maintains indices and signs them itself
func (p *AptPublisher) Finalize(_ context.Context) error {
	return nil
}
