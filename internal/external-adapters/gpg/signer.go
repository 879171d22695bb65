package gpg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// Signer writes detached ASCII-armored signatures in-process using
// ProtonMail's go-crypto, so no gpg agent or keyring is needed on the host
type Signer struct {
	entity *openpgp.Entity
	config *packet.Config
}

// NewSigner creates a signer for an entity that carries a decrypted private key
func NewSigner(entity *openpgp.Entity) (*Signer, error) {
	if entity == nil || entity.PrivateKey == nil {
		return nil, fmt.Errorf("signing key has no private key material")
	}
	if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("signing key is still encrypted")
	}
	return &Signer{entity: entity, config: &packet.Config{}}, nil
}

// NewSignerFromFile loads the first private key in an armored keyring file,
// decrypting it with passphrase when it is protected
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	//nolint:gosec // G304: keyPath comes from configuration
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open signing key: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	var entity *openpgp.Entity
	for _, e := range keyring {
		if e.PrivateKey != nil {
			entity = e
			break
		}
	}
	if entity == nil {
		return nil, fmt.Errorf("no private key found in %s", keyPath)
	}

	if err := decryptEntity(entity, passphrase); err != nil {
		return nil, err
	}

	return NewSigner(entity)
}

// Sign writes <path>.asc, replacing any existing signature
func (s *Signer) Sign(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	//nolint:gosec // G304: path is an artifact inside the repository tree
	data, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	sigPath := path + gateways.SignatureSuffix
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(sigPath)+".part-*")
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}
	tmpName := tmp.Name()

	if err := openpgp.ArmoredDetachSign(tmp, s.entity, data, s.config); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to sign %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	//nolint:gosec // G302: signatures are published next to the artifact
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set signature permissions: %w", err)
	}
	if err := os.Rename(tmpName, sigPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move signature into place: %w", err)
	}

	return sigPath, nil
}

// Fingerprint returns the hex fingerprint of the signing key
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

func decryptEntity(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return errors.New("signing key is encrypted and no passphrase was provided")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt signing key: %w", err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt signing subkey: %w", err)
			}
		}
	}
	return nil
}
