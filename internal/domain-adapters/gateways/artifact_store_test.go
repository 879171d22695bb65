package gateways

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/reposync/internal/domain/entities"
)

func newTestStore(t *testing.T) (*ArtifactStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "caddy")
	return NewArtifactStore(root, entities.BucketsFromRules(entities.DefaultRules()), ""), root
}

func TestArtifactStore_EnsureBucketDirectories(t *testing.T) {
	store, root := newTestStore(t)

	require.NoError(t, store.EnsureBucketDirectories())
	for _, dir := range []string{"arista", "cisco", "juniper", "mikrotik", "apt", "yum", "yum/Packages"} {
		assert.DirExists(t, filepath.Join(root, dir))
	}
	assert.NoDirExists(t, filepath.Join(root, "apt", "Packages"))

	// second call is a no-op and leaves content alone
	keep := filepath.Join(root, "apt", "existing.deb")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0600))
	require.NoError(t, store.EnsureBucketDirectories())
	assert.FileExists(t, keep)
}

func TestArtifactStore_EnsureBucketDirectories_Error(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0600))

	store := NewArtifactStore(root, entities.BucketsFromRules(entities.DefaultRules()), "")
	err := store.EnsureBucketDirectories()

	var fsErr *entities.FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "mkdir", fsErr.Op)
}

func TestArtifactStore_LocalPath(t *testing.T) {
	store := NewArtifactStore("/usr/share/caddy", nil, "")

	assert.Equal(t, "/usr/share/caddy/apt/app_1.0_amd64.deb", store.LocalPath("apt", "app_1.0_amd64.deb"))
	assert.Equal(t, "/usr/share/caddy/yum/evil.rpm", store.LocalPath("yum", "../../evil.rpm"))
	assert.Equal(t, "/usr/share/caddy/yum/Packages", store.PackagesDir("yum"))
}

func TestArtifactStore_WriteAndExists(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, store.EnsureBucketDirectories())
	path := store.LocalPath("apt", "app_1.0_amd64.deb")

	present, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, present)

	n, err := store.Write(path, strings.NewReader("package bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	present, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, present)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(root, "apt"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestArtifactStore_WriteFailureLeavesNothing(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, store.EnsureBucketDirectories())
	path := store.LocalPath("apt", "app_1.0_amd64.deb")

	_, err := store.Write(path, io.MultiReader(strings.NewReader("partial"), failingReader{}))
	require.Error(t, err)

	present, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, present, "an interrupted write must not look like a completed download")

	entries, err := os.ReadDir(filepath.Join(root, "apt"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArtifactStore_CopyAndChecksum(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, store.EnsureBucketDirectories())
	src := store.LocalPath("yum", "app-1.0.x86_64.rpm")
	_, err := store.Write(src, strings.NewReader("hello"))
	require.NoError(t, err)

	dst, err := store.Copy(src, store.PackagesDir("yum"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "yum", "Packages", "app-1.0.x86_64.rpm"), dst)

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	sum, err := store.Checksum(dst)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	_, err = store.Copy(filepath.Join(root, "missing.rpm"), store.PackagesDir("yum"))
	var fsErr *entities.FilesystemError
	assert.ErrorAs(t, err, &fsErr)
}

func TestArtifactStore_List(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.EnsureBucketDirectories())
	dir := store.PackagesDir("yum")

	for _, name := range []string{"b-1.0.x86_64.rpm", "a-1.0.noarch.rpm", "notes.txt", ".hidden.rpm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.rpm"), 0755))

	files, err := store.List(dir, "*.rpm")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a-1.0.noarch.rpm"),
		filepath.Join(dir, "b-1.0.x86_64.rpm"),
	}, files)

	_, err = store.List(dir, "[")
	assert.ErrorContains(t, err, "invalid package pattern")

	_, err = store.List(filepath.Join(dir, "missing"), "*")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArtifactStore_StaleMarker(t *testing.T) {
	store, root := newTestStore(t)
	require.NoError(t, store.EnsureBucketDirectories())

	assert.False(t, store.IsStale("yum"))
	require.NoError(t, store.MarkStale("yum", "failed at finalize"))
	assert.True(t, store.IsStale("yum"))

	content, err := os.ReadFile(filepath.Join(root, "yum", ".metadata-stale"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "failed at finalize")

	require.NoError(t, store.ClearStale("yum"))
	assert.False(t, store.IsStale("yum"))
	require.NoError(t, store.ClearStale("yum"), "clearing twice is fine")
}
