package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"attest/internal/certificate/models"
	"attest/pkg/platform/sentinel"
)

// MemoryStore keeps certificates in a map. It mirrors the Postgres store's
// semantics, including write-once enforcement under concurrency, so unit
// tests and dev mode exercise the same contract.
type MemoryStore struct {
	mu           sync.RWMutex
	certificates map[string]models.Certificate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certificates: make(map[string]models.Certificate)}
}

func (s *MemoryStore) Create(_ context.Context, certificate models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certificates[certificate.ID]; exists {
		return fmt.Errorf("create certificate %s: duplicate id", certificate.ID)
	}
	certificate.Status = certificate.DeriveStatus()
	s.certificates[certificate.ID] = certificate
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certificate, ok := s.certificates[id]
	if !ok {
		return models.Certificate{}, fmt.Errorf("find certificate %s: %w", id, sentinel.ErrNotFound)
	}
	return certificate, nil
}

func (s *MemoryStore) ListByRecipient(_ context.Context, address string) ([]models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := []models.Certificate{}
	for _, certificate := range s.certificates {
		if certificate.RecipientAddress == address {
			matches = append(matches, certificate)
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]models.Certificate, 0, len(s.certificates))
	for _, certificate := range s.certificates {
		all = append(all, certificate)
	}
	sortNewestFirst(all)
	return all, nil
}

// AttachChainProof checks write-once fields under the store lock, which
// linearizes concurrent attaches on the same id: the second caller always
// observes the first caller's write and fails with ErrImmutable.
func (s *MemoryStore) AttachChainProof(_ context.Context, id string, proof models.ChainProof) (models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	certificate, ok := s.certificates[id]
	if !ok {
		return models.Certificate{}, fmt.Errorf("attach chain proof %s: %w", id, sentinel.ErrNotFound)
	}
	if proof.MintReference != "" && certificate.MintReference != "" {
		return models.Certificate{}, fmt.Errorf("attach mint reference %s: %w", id, sentinel.ErrImmutable)
	}
	if proof.ProofSignature != "" && certificate.ProofSignature != "" {
		return models.Certificate{}, fmt.Errorf("attach proof signature %s: %w", id, sentinel.ErrImmutable)
	}

	if proof.MintReference != "" {
		certificate.MintReference = proof.MintReference
	}
	if proof.ProofSignature != "" {
		certificate.ProofSignature = proof.ProofSignature
	}
	certificate.Status = certificate.DeriveStatus()
	certificate.UpdatedAt = time.Now().UTC()
	s.certificates[id] = certificate
	return certificate, nil
}

func sortNewestFirst(certificates []models.Certificate) {
	sort.Slice(certificates, func(i, j int) bool {
		return certificates[i].CreatedAt.After(certificates[j].CreatedAt)
	})
}
