// Package service is the read-only projection over the certificate store.
// It holds no mutation capability at the type level, so verification can
// never be used to tamper with records.
package service

import (
	"context"
	"errors"

	"attest/internal/certificate/models"
	pkgerrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

// Reader is the read-only slice of the certificate store this service is
// allowed to see.
type Reader interface {
	FindByID(ctx context.Context, id string) (models.Certificate, error)
	ListByRecipient(ctx context.Context, address string) ([]models.Certificate, error)
}

// Cache is an optional read-through cache for by-id lookups. A nil cache
// disables caching entirely.
type Cache interface {
	Get(ctx context.Context, id string) (models.Certificate, bool)
	Put(ctx context.Context, certificate models.Certificate)
}

type Service struct {
	reader Reader
	cache  Cache
}

func New(reader Reader, cache Cache) *Service {
	return &Service{reader: reader, cache: cache}
}

// VerifyByID returns the certificate or a not-found error. Minted records are
// immutable, so a cache hit never serves stale proof fields.
func (s *Service) VerifyByID(ctx context.Context, id string) (models.Certificate, error) {
	if s.cache != nil {
		if certificate, ok := s.cache.Get(ctx, id); ok {
			return certificate, nil
		}
	}
	certificate, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return models.Certificate{}, translate(err)
	}
	if s.cache != nil {
		s.cache.Put(ctx, certificate)
	}
	return certificate, nil
}

// VerifyByRecipient returns the certificates held by an address; an empty
// slice, not an error, when none match.
func (s *Service) VerifyByRecipient(ctx context.Context, address string) ([]models.Certificate, error) {
	certificates, err := s.reader.ListByRecipient(ctx, address)
	if err != nil {
		return nil, translate(err)
	}
	return certificates, nil
}

func translate(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, "certificate not found", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, "certificate store failure", err)
}
