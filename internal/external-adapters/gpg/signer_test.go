package gpg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_Sign_WritesArmoredSignature(t *testing.T) {
	tmpDir := t.TempDir()
	signer, err := NewSigner(newTestEntity(t))
	require.NoError(t, err)

	artifact := filepath.Join(tmpDir, "app-1.0.x86_64.rpm")
	require.NoError(t, os.WriteFile(artifact, []byte("rpm bytes"), 0600))

	sigPath, err := signer.Sign(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, artifact+".asc", sigPath)

	data, err := os.ReadFile(sigPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-----BEGIN PGP SIGNATURE-----"))

	// no temporary files left behind
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSigner_Sign_OverwritesPreviousSignature(t *testing.T) {
	tmpDir := t.TempDir()
	entity := newTestEntity(t)
	signer, err := NewSigner(entity)
	require.NoError(t, err)

	artifact := filepath.Join(tmpDir, "app.deb")
	require.NoError(t, os.WriteFile(artifact, []byte("v1"), 0600))
	require.NoError(t, os.WriteFile(artifact+".asc", []byte("stale signature"), 0600))

	sigPath, err := signer.Sign(context.Background(), artifact)
	require.NoError(t, err)

	v := NewVerifierFromEntities(entity)
	assert.NoError(t, v.VerifySignatureFromFile(artifact, sigPath))
}

func TestSigner_Sign_MissingFile(t *testing.T) {
	signer, err := NewSigner(newTestEntity(t))
	require.NoError(t, err)

	_, err = signer.Sign(context.Background(), filepath.Join(t.TempDir(), "missing.deb"))
	assert.Error(t, err)
}

func TestSigner_Sign_CanceledContext(t *testing.T) {
	signer, err := NewSigner(newTestEntity(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = signer.Sign(ctx, "/does/not/matter")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSignerFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	entity := newTestEntity(t)

	signer, err := NewSignerFromFile(writeArmoredKey(t, tmpDir, entity, true), nil)
	require.NoError(t, err)
	assert.Equal(t, signer.Fingerprint(), strings.ToUpper(signer.Fingerprint()))
	assert.Len(t, signer.Fingerprint(), 40)
}

func TestNewSignerFromFile_PublicKeyOnly(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := NewSignerFromFile(writeArmoredKey(t, tmpDir, newTestEntity(t), false), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no private key found")
}

func TestNewSigner_NilEntity(t *testing.T) {
	_, err := NewSigner(nil)
	assert.Error(t, err)
}
