package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and chain adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: certificate does not exist in the store
// - ErrImmutable: attempted overwrite of a write-once chain proof field
// - ErrInvalidState: certificate in wrong lifecycle state for the operation
// - ErrUnavailable: external dependency (chain, store) temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrImmutable    = errors.New("immutable field already set")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
