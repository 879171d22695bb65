package gateways

import (
	"context"

	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// DryRunSigner logs what would be signed and touches nothing
type DryRunSigner struct {
	logger interfaces.Logger
}

// NewDryRunSigner creates a signer for dry runs
func NewDryRunSigner(logger interfaces.Logger) *DryRunSigner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DryRunSigner{logger: logger}
}

// Sign returns the signature path that a real run would write
func (s *DryRunSigner) Sign(_ context.Context, path string) (string, error) {
	sig := path + gateways.SignatureSuffix
	s.logger.Info("dry run, not signing", interfaces.F("path", path), interfaces.F("signature", sig))
	return sig, nil
}
