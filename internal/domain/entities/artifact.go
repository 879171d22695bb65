// Package entities defines core domain models and data structures.
package entities

// ArtifactState tracks how far an artifact has progressed through a sync pass
type ArtifactState string

// Artifact lifecycle states
const (
	StateRemote     ArtifactState = "remote"
	StateDownloaded ArtifactState = "downloaded"
	StateSigned     ArtifactState = "signed"
	StatePublished  ArtifactState = "published"
	StateSkipped    ArtifactState = "skipped"
)

// Artifact represents a distribution file published with a release
type Artifact struct {
	Name        string // remote filename
	DownloadURL string
	Bucket      Bucket
	Path        string // local path, derived from Bucket and Name
	State       ArtifactState
}

// Release is the latest-release snapshot returned by the feed
type Release struct {
	Tag    string
	Assets []*Artifact
}
