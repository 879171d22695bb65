package orchestrators

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ochairo/reposync/internal/domain-adapters/gateways"
	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/services"
)

// Mock implementations for testing

type mockFeed struct {
	release       *entities.Release
	fetchErr      error
	bodies        map[string]string
	downloadErr   error
	downloadCalls []string
}

func (m *mockFeed) FetchLatestRelease(_ context.Context) (*entities.Release, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.release, nil
}

func (m *mockFeed) DownloadArtifact(_ context.Context, url string) (io.ReadCloser, error) {
	m.downloadCalls = append(m.downloadCalls, url)
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return io.NopCloser(strings.NewReader(m.bodies[url])), nil
}

// mockSigner writes a fake signature beside the file, like the real signers
type mockSigner struct {
	signed []string
	failOn string
}

func (m *mockSigner) Sign(_ context.Context, path string) (string, error) {
	if m.failOn != "" && strings.HasSuffix(path, m.failOn) {
		return "", errors.New("gpg exited with code 2")
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	m.signed = append(m.signed, path)
	sig := path + ".asc"
	return sig, os.WriteFile(sig, []byte("-----BEGIN PGP SIGNATURE-----\n"), 0600)
}

// mockPublisher records ingest and finalize calls into a shared event log
type mockPublisher struct {
	name        string
	events      *[]string
	ingested    []string
	finalized   int
	ingestErr   error
	finalizeErr error
	mu          sync.Mutex
}

func (m *mockPublisher) Ingest(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.events = append(*m.events, m.name+":ingest")
	if m.ingestErr != nil {
		return m.ingestErr
	}
	m.ingested = append(m.ingested, path)
	return nil
}

func (m *mockPublisher) Finalize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.events = append(*m.events, m.name+":finalize")
	m.finalized++
	return m.finalizeErr
}

type recordingMetrics struct {
	mu        sync.Mutex
	artifacts map[string]int
	failures  map[string]int
	runs      int
	success   bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{artifacts: map[string]int{}, failures: map[string]int{}}
}

func (m *recordingMetrics) RecordArtifact(bucket, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[bucket+"/"+outcome]++
}

func (m *recordingMetrics) RecordBucketFailure(bucket, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[bucket+"/"+stage]++
}

func (m *recordingMetrics) RecordRun(success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.success = success
}

func asset(name string) *entities.Artifact {
	return &entities.Artifact{
		Name:        name,
		DownloadURL: "https://example.invalid/download/" + name,
	}
}

// harness wires a SyncOrchestrator against a real ArtifactStore in a temp dir
type harness struct {
	classifier *services.Classifier
	root       string
	store      *gateways.ArtifactStore
	feed       *mockFeed
	signer     *mockSigner
	apt        *mockPublisher
	yum        *mockPublisher
	events     []string
	metrics    *recordingMetrics
	orch       *SyncOrchestrator
}

func newHarness(t *testing.T, assets ...*entities.Artifact) *harness {
	t.Helper()

	classifier, err := services.NewClassifier(entities.DefaultRules())
	require.NoError(t, err)

	h := &harness{classifier: classifier, root: t.TempDir()}
	h.store = gateways.NewArtifactStore(h.root, classifier.Buckets(), "Packages")
	h.feed = &mockFeed{
		release: &entities.Release{Tag: "v1.0.0", Assets: assets},
		bodies:  map[string]string{},
	}
	for _, a := range assets {
		h.feed.bodies[a.DownloadURL] = "contents of " + a.Name
	}
	h.signer = &mockSigner{}
	h.apt = &mockPublisher{name: "apt", events: &h.events}
	h.yum = &mockPublisher{name: "yum", events: &h.events}
	h.metrics = newRecordingMetrics()
	h.build(SyncOrchestratorConfig{})
	return h
}

// build (re)creates the orchestrator with the harness collaborators plus any
// extra options in config
func (h *harness) build(config SyncOrchestratorConfig) {
	config.Publishers = map[entities.Bucket]Publisher{
		"apt": h.apt,
		"yum": h.yum,
	}
	config.Metrics = h.metrics
	config.RunID = func() string { return "test-run" }
	h.orch = NewSyncOrchestrator(h.classifier, h.store, h.feed, h.signer, config)
}

// withManifest publishes a checksum manifest in the release and turns on
// verification
func (h *harness) withManifest(manifest string) {
	a := asset("checksums.txt")
	h.feed.release.Assets = append(h.feed.release.Assets, a)
	h.feed.bodies[a.DownloadURL] = manifest
	h.build(SyncOrchestratorConfig{
		Checksums:      gateways.NewChecksumVerifier(),
		ChecksumsAsset: "checksums.txt",
	})
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
