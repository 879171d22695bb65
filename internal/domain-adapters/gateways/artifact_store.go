package gateways

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// staleMarker is written into a bucket whose repository metadata no longer
// matches its package directory
const staleMarker = ".metadata-stale"

// ArtifactStore owns the on-disk layout of the repository tree
type ArtifactStore struct {
	root        string
	buckets     []entities.BucketSpec
	packagesDir string
}

// NewArtifactStore creates a store rooted at root for the given buckets
func NewArtifactStore(root string, buckets []entities.BucketSpec, packagesDir string) *ArtifactStore {
	if packagesDir == "" {
		packagesDir = entities.DefaultPackagesDir
	}
	return &ArtifactStore{
		root:        root,
		buckets:     buckets,
		packagesDir: packagesDir,
	}
}

// BucketDir returns the directory owned by bucket
func (s *ArtifactStore) BucketDir(bucket entities.Bucket) string {
	return filepath.Join(s.root, string(bucket))
}

// PackagesDir returns the flat package directory of an RPM bucket
func (s *ArtifactStore) PackagesDir(bucket entities.Bucket) string {
	return filepath.Join(s.BucketDir(bucket), s.packagesDir)
}

// EnsureBucketDirectories creates the root and one directory per bucket.
// Safe to call on every run.
func (s *ArtifactStore) EnsureBucketDirectories() error {
	dirs := []string{s.root}
	for _, b := range s.buckets {
		dirs = append(dirs, s.BucketDir(b.Name))
		if b.Format == entities.FormatRPM {
			dirs = append(dirs, s.PackagesDir(b.Name))
		}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &entities.FilesystemError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return nil
}

// LocalPath derives where an artifact lives locally. No I/O.
func (s *ArtifactStore) LocalPath(bucket entities.Bucket, name string) string {
	return filepath.Join(s.BucketDir(bucket), filepath.Base(name))
}

// Exists reports whether path is present
func (s *ArtifactStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &entities.FilesystemError{Op: "stat", Path: path, Err: err}
}

// Write stores r at path. The content lands under a temporary name and is
// renamed into place, so an interrupted write never leaves a partial file.
func (s *ArtifactStore) Write(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return 0, &entities.FilesystemError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return 0, &entities.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, &entities.FilesystemError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, &entities.FilesystemError{Op: "close", Path: path, Err: err}
	}
	//nolint:gosec // G302: published artifacts are world-readable
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return 0, &entities.FilesystemError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, &entities.FilesystemError{Op: "rename", Path: path, Err: err}
	}

	return written, nil
}

// Copy copies src byte-for-byte into dstDir and returns the new path
func (s *ArtifactStore) Copy(src, dstDir string) (string, error) {
	//nolint:gosec // G304: src is a path inside the repository tree
	in, err := os.Open(src)
	if err != nil {
		return "", &entities.FilesystemError{Op: "open", Path: src, Err: err}
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	dst := filepath.Join(dstDir, filepath.Base(src))
	if _, err := s.Write(dst, in); err != nil {
		return "", err
	}
	return dst, nil
}

// Checksum returns the SHA-256 of the file at path
func (s *ArtifactStore) Checksum(path string) (string, error) {
	sum, err := fileSHA256(path)
	if err != nil {
		return "", &entities.FilesystemError{Op: "hash", Path: path, Err: err}
	}
	return sum, nil
}

// Remove deletes path; a missing file is not an error
func (s *ArtifactStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &entities.FilesystemError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// List returns the sorted regular files in dir whose names match pattern
func (s *ArtifactStore) List(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid package pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &entities.FilesystemError{Op: "readdir", Path: dir, Err: err}
	}

	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if g.Match(entry.Name()) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// MarkStale records that bucket's metadata could not be brought up to date
func (s *ArtifactStore) MarkStale(bucket entities.Bucket, reason string) error {
	path := filepath.Join(s.BucketDir(bucket), staleMarker)
	content := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), reason)
	//nolint:gosec // G306: marker is read by operators and monitoring
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &entities.FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// ClearStale removes the stale marker of bucket if present
func (s *ArtifactStore) ClearStale(bucket entities.Bucket) error {
	path := filepath.Join(s.BucketDir(bucket), staleMarker)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &entities.FilesystemError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// IsStale reports whether bucket carries a stale marker
func (s *ArtifactStore) IsStale(bucket entities.Bucket) bool {
	ok, _ := s.Exists(filepath.Join(s.BucketDir(bucket), staleMarker))
	return ok
}
