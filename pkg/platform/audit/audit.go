// Package audit records certificate lifecycle events. Chain failures carry
// the certificate id and phase so operators can reconcile manually; no
// automatic compensating transaction exists.
package audit

import (
	"context"
	"sync"
	"time"
)

// Actions emitted by the mint coordinator.
const (
	ActionCertificateIssued = "certificate_issued"
	ActionMintPrepared      = "mint_prepared"
	ActionMintCompleted     = "mint_completed"
	ActionMintDirect        = "mint_direct"
	ActionChainFailure      = "chain_failure"
)

// Phases of the minting protocol, recorded on chain failures.
const (
	PhasePrepare = "prepare"
	PhaseSubmit  = "submit"
	PhaseDirect  = "direct"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	CertificateID string    `json:"certificate_id"`
	Action        string    `json:"action"`
	Phase         string    `json:"phase,omitempty"`
	Recipient     string    `json:"recipient,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Publisher is the sink interface services emit through.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// NopPublisher discards events; the default when no sink is configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }

// MemoryStore is an append-only in-memory sink for tests and dev mode.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ListByCertificate filters the recorded events for one certificate.
func (s *MemoryStore) ListByCertificate(certificateID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, event := range s.events {
		if event.CertificateID == certificateID {
			out = append(out, event)
		}
	}
	return out
}
