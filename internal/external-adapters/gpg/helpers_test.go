package gpg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/require"
)

// newTestEntity generates a throwaway Ed25519 signing key
func newTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("reposync test", "", "test@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	require.NoError(t, err)
	return entity
}

// writeArmoredKey writes the public or private half of entity to dir
func writeArmoredKey(t *testing.T, dir string, entity *openpgp.Entity, private bool) string {
	t.Helper()

	var buf bytes.Buffer
	blockType := openpgp.PublicKeyType
	name := "public.asc"
	if private {
		blockType = openpgp.PrivateKeyType
		name = "private.asc"
	}

	w, err := armor.Encode(&buf, blockType, nil)
	require.NoError(t, err)
	if private {
		require.NoError(t, entity.SerializePrivate(w, nil))
	} else {
		require.NoError(t, entity.Serialize(w))
	}
	require.NoError(t, w.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}
