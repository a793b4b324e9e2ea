// Package service drives the two-phase issuance/minting protocol. It is the
// only writer besides Create: the store is mutated exclusively here, and only
// after the chain service has returned, so a chain failure can never leave a
// partial record behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attest/internal/certificate/models"
	"attest/internal/certificate/store"
	"attest/internal/chain"
	pkgerrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
)

var tracer = otel.Tracer("attest/internal/certificate/service")

// Service is the mint coordinator. The chain service may be nil when no
// chain backend is configured; issuance still works, minting reports the
// chain as unavailable.
type Service struct {
	store         store.Store
	chain         chain.Service
	logger        *slog.Logger
	audit         audit.Publisher
	issuerAddress string
	tokenSymbol   string
	locks         *keyedLocks
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAudit routes lifecycle events to the given publisher.
func WithAudit(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

// WithIssuerAddress sets the default issuer chain identity used when a
// certificate was created without one.
func WithIssuerAddress(address string) Option {
	return func(s *Service) { s.issuerAddress = address }
}

// WithTokenSymbol overrides the symbol stamped on minted tokens.
func WithTokenSymbol(symbol string) Option {
	return func(s *Service) { s.tokenSymbol = symbol }
}

func New(certificates store.Store, chainService chain.Service, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:       certificates,
		chain:       chainService,
		logger:      logger,
		audit:       audit.NopPublisher{},
		tokenSymbol: "CERT",
		locks:       newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PrepareMintResult pairs the updated record with the payload the client must
// submit through CompleteMint.
type PrepareMintResult struct {
	Certificate models.Certificate
	Payload     string
}

// Issue persists a new certificate in the unminted state and returns it
// immediately. Minting is a separate, explicit step: issuance never blocks
// on, and never fails because of, chain availability.
func (s *Service) Issue(ctx context.Context, req models.CreateRequest) (models.Certificate, error) {
	if err := req.Validate(); err != nil {
		return models.Certificate{}, err
	}
	if req.RecipientAddress != "" {
		if err := validateAddress("recipient_address", req.RecipientAddress); err != nil {
			return models.Certificate{}, err
		}
	}

	now := time.Now().UTC()
	certificate := models.Certificate{
		ID:               uuid.NewString(),
		HolderName:       req.HolderName,
		HolderEmail:      req.HolderEmail,
		Title:            req.Title,
		Description:      req.Description,
		IssueDate:        req.IssueDate,
		RecipientAddress: req.RecipientAddress,
		IssuerAddress:    req.IssuerAddress,
		Status:           models.StatusUnminted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, certificate); err != nil {
		return models.Certificate{}, pkgerrors.Wrap(pkgerrors.CodeInternal, "store certificate", err)
	}

	certificatesIssued.Inc()
	s.emit(ctx, audit.Event{
		CertificateID: certificate.ID,
		Action:        audit.ActionCertificateIssued,
		Recipient:     certificate.RecipientAddress,
	})
	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", certificate.ID,
		"title", certificate.Title,
	)
	return certificate, nil
}

// Get returns a certificate by id.
func (s *Service) Get(ctx context.Context, id string) (models.Certificate, error) {
	certificate, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Certificate{}, translateStoreError(err)
	}
	return certificate, nil
}

// List returns all certificates, newest first.
func (s *Service) List(ctx context.Context) ([]models.Certificate, error) {
	certificates, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, "list certificates", err)
	}
	return certificates, nil
}

// PrepareMint runs the first phase of the two-phase mint. It requires an
// unminted record with a recipient address, asks the chain service for a mint
// reference and a signed payload, and only then attaches the reference.
// Safe to retry while the record is still unminted: a chain failure leaves
// the record untouched.
func (s *Service) PrepareMint(ctx context.Context, id string) (PrepareMintResult, error) {
	ctx, span := tracer.Start(ctx, "PrepareMint",
		trace.WithAttributes(attribute.String("certificate.id", id)))
	defer span.End()

	unlock := s.locks.lock(id)
	defer unlock()

	certificate, err := s.store.FindByID(ctx, id)
	if err != nil {
		return PrepareMintResult{}, translateStoreError(err)
	}
	if status := certificate.DeriveStatus(); status != models.StatusUnminted {
		return PrepareMintResult{}, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("certificate is %s, mint preparation requires unminted", status))
	}
	issuer, err := s.resolveIssuer(certificate)
	if err != nil {
		return PrepareMintResult{}, err
	}
	if certificate.RecipientAddress == "" {
		return PrepareMintResult{}, pkgerrors.NewField(pkgerrors.CodeBadRequest,
			"recipient_address", "required before minting")
	}

	prepared, err := s.chainService().PrepareTransfer(ctx, chain.PrepareRequest{
		Issuer:    issuer,
		Recipient: certificate.RecipientAddress,
		Metadata:  s.metadataFor(certificate),
	})
	if err != nil {
		span.RecordError(err)
		return PrepareMintResult{}, s.chainFailure(ctx, certificate.ID, audit.PhasePrepare, err)
	}

	updated, err := s.store.AttachChainProof(ctx, id, models.ChainProof{MintReference: prepared.Reference})
	if err != nil {
		return PrepareMintResult{}, translateStoreError(err)
	}

	mintsPrepared.Inc()
	s.emit(ctx, audit.Event{
		CertificateID: id,
		Action:        audit.ActionMintPrepared,
		Reference:     prepared.Reference,
		Recipient:     certificate.RecipientAddress,
	})
	s.logger.InfoContext(ctx, "mint prepared",
		"certificate_id", id,
		"mint_reference", prepared.Reference,
	)
	return PrepareMintResult{Certificate: updated, Payload: prepared.Payload}, nil
}

// CompleteMint runs the second phase: it submits the signed payload and
// attaches the resulting transaction signature. It requires a partially
// minted record; completion is not idempotent because the proof signature is
// write-once. A chain failure leaves the record partially minted and the call
// retryable.
func (s *Service) CompleteMint(ctx context.Context, id string, signedPayload string) (models.Certificate, error) {
	ctx, span := tracer.Start(ctx, "CompleteMint",
		trace.WithAttributes(attribute.String("certificate.id", id)))
	defer span.End()

	if signedPayload == "" {
		return models.Certificate{}, pkgerrors.NewField(pkgerrors.CodeBadRequest,
			"signed_payload", "missing required field")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	certificate, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Certificate{}, translateStoreError(err)
	}
	if status := certificate.DeriveStatus(); status != models.StatusPartiallyMinted {
		return models.Certificate{}, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("certificate is %s, mint completion requires partially_minted", status))
	}

	submitted, err := s.chainService().SubmitSigned(ctx, signedPayload)
	if err != nil {
		span.RecordError(err)
		return models.Certificate{}, s.chainFailure(ctx, id, audit.PhaseSubmit, err)
	}

	updated, err := s.store.AttachChainProof(ctx, id, models.ChainProof{ProofSignature: submitted.Signature})
	if err != nil {
		return models.Certificate{}, translateStoreError(err)
	}

	mintsCompleted.Inc()
	s.emit(ctx, audit.Event{
		CertificateID: id,
		Action:        audit.ActionMintCompleted,
		Reference:     updated.MintReference,
		Signature:     submitted.Signature,
	})
	s.logger.InfoContext(ctx, "mint completed",
		"certificate_id", id,
		"proof_signature", submitted.Signature,
	)
	return updated, nil
}

// MintDirect is the single-phase alternative: one chain call, one store
// mutation attaching both proof fields, moving the record straight from
// unminted to minted.
func (s *Service) MintDirect(ctx context.Context, id string) (models.Certificate, error) {
	ctx, span := tracer.Start(ctx, "MintDirect",
		trace.WithAttributes(attribute.String("certificate.id", id)))
	defer span.End()

	unlock := s.locks.lock(id)
	defer unlock()

	certificate, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Certificate{}, translateStoreError(err)
	}
	if status := certificate.DeriveStatus(); status != models.StatusUnminted {
		return models.Certificate{}, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("certificate is %s, direct mint requires unminted", status))
	}
	issuer, err := s.resolveIssuer(certificate)
	if err != nil {
		return models.Certificate{}, err
	}
	if certificate.RecipientAddress == "" {
		return models.Certificate{}, pkgerrors.NewField(pkgerrors.CodeBadRequest,
			"recipient_address", "required before minting")
	}

	minted, err := s.chainService().MintAndConfirm(ctx, chain.PrepareRequest{
		Issuer:    issuer,
		Recipient: certificate.RecipientAddress,
		Metadata:  s.metadataFor(certificate),
	})
	if err != nil {
		span.RecordError(err)
		return models.Certificate{}, s.chainFailure(ctx, id, audit.PhaseDirect, err)
	}

	updated, err := s.store.AttachChainProof(ctx, id, models.ChainProof{
		MintReference:  minted.Reference,
		ProofSignature: minted.Signature,
	})
	if err != nil {
		return models.Certificate{}, translateStoreError(err)
	}

	mintsCompleted.Inc()
	s.emit(ctx, audit.Event{
		CertificateID: id,
		Action:        audit.ActionMintDirect,
		Reference:     minted.Reference,
		Signature:     minted.Signature,
		Recipient:     certificate.RecipientAddress,
	})
	s.logger.InfoContext(ctx, "minted directly",
		"certificate_id", id,
		"mint_reference", minted.Reference,
	)
	return updated, nil
}

func (s *Service) metadataFor(certificate models.Certificate) chain.Metadata {
	return chain.Metadata{
		Name:   certificate.Title,
		Symbol: s.tokenSymbol,
	}
}

func (s *Service) resolveIssuer(certificate models.Certificate) (string, error) {
	if certificate.IssuerAddress != "" {
		return certificate.IssuerAddress, nil
	}
	if s.issuerAddress != "" {
		return s.issuerAddress, nil
	}
	return "", pkgerrors.NewField(pkgerrors.CodeBadRequest,
		"issuer_address", "no issuer address on the certificate and no system issuer configured")
}

// chainService returns the configured chain backend or a stand-in that
// reports unavailability, so the nil check lives in exactly one place.
func (s *Service) chainService() chain.Service {
	if s.chain == nil {
		return unavailableChain{}
	}
	return s.chain
}

// chainFailure translates a chain error, records it for manual
// reconciliation, and guarantees the caller sees the record's state as the
// source of truth for what durably happened.
func (s *Service) chainFailure(ctx context.Context, certificateID, phase string, err error) error {
	chainFailures.WithLabelValues(phase).Inc()
	s.emit(ctx, audit.Event{
		CertificateID: certificateID,
		Action:        audit.ActionChainFailure,
		Phase:         phase,
		Reason:        err.Error(),
	})
	s.logger.ErrorContext(ctx, "chain service failure",
		"certificate_id", certificateID,
		"phase", phase,
		"error", err,
	)
	return pkgerrors.Wrap(pkgerrors.CodeChainUnavailable, "chain service failure during "+phase, err)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"certificate_id", event.CertificateID,
			"action", event.Action,
			"error", err,
		)
	}
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, "certificate not found", err)
	case errors.Is(err, sentinel.ErrImmutable):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, "chain proof already attached", err)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, "certificate store failure", err)
	}
}

func validateAddress(field, address string) error {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 32 {
		return pkgerrors.NewField(pkgerrors.CodeBadRequest, field, "not a valid chain address")
	}
	return nil
}

type unavailableChain struct{}

func (unavailableChain) PrepareTransfer(context.Context, chain.PrepareRequest) (chain.Prepared, error) {
	return chain.Prepared{}, fmt.Errorf("no chain backend configured: %w", sentinel.ErrUnavailable)
}

func (unavailableChain) SubmitSigned(context.Context, string) (chain.Submitted, error) {
	return chain.Submitted{}, fmt.Errorf("no chain backend configured: %w", sentinel.ErrUnavailable)
}

func (unavailableChain) MintAndConfirm(context.Context, chain.PrepareRequest) (chain.Minted, error) {
	return chain.Minted{}, fmt.Errorf("no chain backend configured: %w", sentinel.ErrUnavailable)
}
