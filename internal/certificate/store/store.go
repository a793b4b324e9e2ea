// Package store persists certificates. Implementations must make every
// mutation durable before returning and must linearize AttachChainProof per
// certificate id so two concurrent prepares cannot both win.
package store

import (
	"context"

	"attest/internal/certificate/models"
)

type Store interface {
	// Create persists a new certificate. The caller has already validated the
	// fields and assigned id and timestamps.
	Create(ctx context.Context, certificate models.Certificate) error

	// FindByID returns sentinel.ErrNotFound (wrapped) for unknown ids.
	FindByID(ctx context.Context, id string) (models.Certificate, error)

	// ListByRecipient returns an empty slice, not an error, when nothing
	// matches.
	ListByRecipient(ctx context.Context, address string) ([]models.Certificate, error)

	// ListAll returns every certificate, newest first.
	ListAll(ctx context.Context) ([]models.Certificate, error)

	// AttachChainProof merges the supplied non-empty proof fields into the
	// record, recomputes status and bumps updated_at. It returns
	// sentinel.ErrNotFound for unknown ids and sentinel.ErrImmutable when a
	// supplied field is already set; on ErrImmutable the stored record is
	// untouched.
	AttachChainProof(ctx context.Context, id string, proof models.ChainProof) (models.Certificate, error)
}
