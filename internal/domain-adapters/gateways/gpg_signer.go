package gateways

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// GPGBinarySigner signs through the host gpg binary and its keyring
type GPGBinarySigner struct {
	runner gateways.CommandRunner
	binary string
	keyID  string
}

// NewGPGBinarySigner creates a signer that shells out to gpg.
// keyID selects --local-user; empty uses gpg's default key.
func NewGPGBinarySigner(runner gateways.CommandRunner, binary, keyID string) *GPGBinarySigner {
	if binary == "" {
		binary = "gpg"
	}
	return &GPGBinarySigner{runner: runner, binary: binary, keyID: keyID}
}

// Sign runs gpg --detach-sign --armor, overwriting <path>.asc
func (s *GPGBinarySigner) Sign(ctx context.Context, path string) (string, error) {
	args := []string{"--batch", "--yes", "--detach-sign", "--armor"}
	if s.keyID != "" {
		args = append(args, "--local-user", s.keyID)
	}
	args = append(args, "--output", path+gateways.SignatureSuffix, path)

	err := runTool(ctx, s.runner, gateways.Command{
		Name:        s.binary,
		Args:        args,
		Timeout:     5 * time.Minute,
		Description: "detach-sign",
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", path, err)
	}
	return path + gateways.SignatureSuffix, nil
}
