package models

import (
	"time"

	pkgerrors "attest/pkg/domain-errors"
)

// Status is derived from the chain proof fields, never stored directly, so
// the store cannot drift from the record it describes.
type Status string

const (
	// StatusUnminted: no chain proof attached; the certificate is still fully
	// valid and verifiable from the store alone.
	StatusUnminted Status = "unminted"
	// StatusPartiallyMinted: an issuer-side transaction was prepared (mint
	// reference assigned) but not yet completed by the signer.
	StatusPartiallyMinted Status = "partially_minted"
	// StatusMinted: both the mint reference and the transaction signature are
	// recorded.
	StatusMinted Status = "minted"
)

// Certificate is the sole entity. Descriptive fields are immutable after
// creation; MintReference and ProofSignature are write-once and only ever move
// the record forward through the lifecycle.
type Certificate struct {
	ID               string     `json:"id"`
	HolderName       string     `json:"holder_name"`
	HolderEmail      string     `json:"holder_email"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	IssueDate        time.Time  `json:"issue_date"`
	RecipientAddress string     `json:"recipient_address,omitempty"`
	IssuerAddress    string     `json:"issuer_address,omitempty"`
	MintReference    string     `json:"mint_reference,omitempty"`
	ProofSignature   string     `json:"proof_signature,omitempty"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DeriveStatus computes the lifecycle state from the chain proof fields.
func (c *Certificate) DeriveStatus() Status {
	switch {
	case c.MintReference != "" && c.ProofSignature != "":
		return StatusMinted
	case c.MintReference != "":
		return StatusPartiallyMinted
	default:
		return StatusUnminted
	}
}

// CreateRequest carries the caller-supplied fields for a new certificate.
type CreateRequest struct {
	HolderName       string    `json:"holder_name"`
	HolderEmail      string    `json:"holder_email"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	IssueDate        time.Time `json:"issue_date"`
	RecipientAddress string    `json:"recipient_address"`
	IssuerAddress    string    `json:"issuer_address"`
}

// requiredFields fixes the validation order so the first-missing-field error
// is deterministic regardless of which other fields are absent.
var requiredFields = []struct {
	name    string
	present func(CreateRequest) bool
}{
	{"holder_name", func(r CreateRequest) bool { return r.HolderName != "" }},
	{"holder_email", func(r CreateRequest) bool { return r.HolderEmail != "" }},
	{"title", func(r CreateRequest) bool { return r.Title != "" }},
	{"issue_date", func(r CreateRequest) bool { return !r.IssueDate.IsZero() }},
}

// Validate checks required fields in fixed order and reports the first one
// missing. Recipient and issuer addresses are genuinely optional here; they
// are required only when a mint is requested.
func (r CreateRequest) Validate() error {
	for _, field := range requiredFields {
		if !field.present(r) {
			return pkgerrors.NewField(pkgerrors.CodeBadRequest, field.name, "missing required field")
		}
	}
	return nil
}

// ChainProof carries the write-once fields attached by the mint coordinator.
// Either field may be empty when only one phase has completed.
type ChainProof struct {
	MintReference  string
	ProofSignature string
}
