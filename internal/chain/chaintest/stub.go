// Package chaintest provides a scriptable in-memory chain service for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"attest/internal/chain"
)

// Stub implements chain.Service with canned responses. Set an Err to make a
// phase fail; set Block to make calls wait until Release is called, which
// lets tests hold a call in flight while another proceeds.
type Stub struct {
	mu sync.Mutex

	PrepareResult chain.Prepared
	PrepareErr    error
	SubmitResult  chain.Submitted
	SubmitErr     error
	MintResult    chain.Minted
	MintErr       error

	prepareCalls int
	submitCalls  int
	mintCalls    int

	block chan struct{}
}

// NewStub returns a stub that succeeds with fixed references.
func NewStub() *Stub {
	return &Stub{
		PrepareResult: chain.Prepared{Reference: "mint123", Payload: "abc"},
		SubmitResult:  chain.Submitted{Signature: "sig456"},
		MintResult:    chain.Minted{Reference: "mint123", Signature: "sig456"},
	}
}

// Block makes subsequent calls wait until Release.
func (s *Stub) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
}

// Release unblocks every waiting call.
func (s *Stub) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.block != nil {
		close(s.block)
		s.block = nil
	}
}

func (s *Stub) wait(ctx context.Context) error {
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stub) PrepareTransfer(ctx context.Context, req chain.PrepareRequest) (chain.Prepared, error) {
	if err := s.wait(ctx); err != nil {
		return chain.Prepared{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepareCalls++
	if s.PrepareErr != nil {
		return chain.Prepared{}, s.PrepareErr
	}
	if req.Recipient == "" {
		return chain.Prepared{}, fmt.Errorf("stub: recipient required")
	}
	return s.PrepareResult, nil
}

func (s *Stub) SubmitSigned(ctx context.Context, payload string) (chain.Submitted, error) {
	if err := s.wait(ctx); err != nil {
		return chain.Submitted{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	if s.SubmitErr != nil {
		return chain.Submitted{}, s.SubmitErr
	}
	return s.SubmitResult, nil
}

func (s *Stub) MintAndConfirm(ctx context.Context, req chain.PrepareRequest) (chain.Minted, error) {
	if err := s.wait(ctx); err != nil {
		return chain.Minted{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mintCalls++
	if s.MintErr != nil {
		return chain.Minted{}, s.MintErr
	}
	return s.MintResult, nil
}

// Calls reports how many times each phase ran.
func (s *Stub) Calls() (prepare, submit, mint int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepareCalls, s.submitCalls, s.mintCalls
}
