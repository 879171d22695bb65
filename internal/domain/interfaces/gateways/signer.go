package gateways

import "context"

// SignatureSuffix is appended to an artifact path to name its detached signature
const SignatureSuffix = ".asc"

// Signer produces detached ASCII-armored signatures
type Signer interface {
	// Sign writes <path>.asc, replacing any previous signature, and returns its path
	Sign(ctx context.Context, path string) (string, error)
}
