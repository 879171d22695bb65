// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
	"io"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// ReleaseFeed retrieves release descriptors and artifact bytes from a remote feed
type ReleaseFeed interface {
	// FetchLatestRelease retrieves the latest release descriptor
	FetchLatestRelease(ctx context.Context) (*entities.Release, error)

	// DownloadArtifact opens the artifact body; the caller closes it
	DownloadArtifact(ctx context.Context, url string) (io.ReadCloser, error)
}
