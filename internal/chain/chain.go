// Package chain defines the narrow contract the mint coordinator depends on.
// The store is never mutated until one of these calls has returned, so a
// failed or abandoned chain call leaves no partial state behind.
package chain

import "context"

// Metadata describes the token minted for a certificate.
type Metadata struct {
	Name   string
	Symbol string
	URI    string
}

// PrepareRequest identifies the parties and metadata for a mint.
type PrepareRequest struct {
	Issuer    string
	Recipient string
	Metadata  Metadata
}

// Prepared is the result of the first phase of a two-phase mint. Reference is
// stable and usable as the certificate's mint reference; Payload is an opaque
// serialized transaction the client submits back through SubmitSigned.
type Prepared struct {
	Reference string
	Payload   string
}

// Submitted is the result of the second phase.
type Submitted struct {
	Signature string
}

// Minted is the result of a single-phase mint.
type Minted struct {
	Reference string
	Signature string
}

// Service is the chain capability. Implementations pick one signing policy
// and implement it genuinely; callers treat failures as retryable and never
// let them corrupt the store. Errors should wrap sentinel.ErrUnavailable so
// the coordinator can classify them.
type Service interface {
	PrepareTransfer(ctx context.Context, req PrepareRequest) (Prepared, error)
	SubmitSigned(ctx context.Context, payload string) (Submitted, error)
	MintAndConfirm(ctx context.Context, req PrepareRequest) (Minted, error)
}
