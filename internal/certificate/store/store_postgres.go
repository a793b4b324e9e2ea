package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attest/internal/certificate/models"
	"attest/pkg/platform/sentinel"
)

// PostgresStore persists certificates in PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is applied by EnsureSchema. recipient_address is indexed for
// ListByRecipient; the chain proof columns stay NULL until minting succeeds.
const Schema = `
CREATE TABLE IF NOT EXISTS certificates (
    id                TEXT PRIMARY KEY,
    holder_name       TEXT NOT NULL,
    holder_email      TEXT NOT NULL,
    title             TEXT NOT NULL,
    description       TEXT,
    issue_date        TIMESTAMPTZ NOT NULL,
    recipient_address TEXT,
    issuer_address    TEXT,
    mint_reference    TEXT,
    proof_signature   TEXT,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS certificates_recipient_address_idx
    ON certificates (recipient_address);
`

// EnsureSchema creates the certificates table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure certificates schema: %w", err)
	}
	return nil
}

const allColumns = `id, holder_name, holder_email, title, description, issue_date,
    recipient_address, issuer_address, mint_reference, proof_signature, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, certificate models.Certificate) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO certificates (`+allColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		certificate.ID,
		certificate.HolderName,
		certificate.HolderEmail,
		certificate.Title,
		nullable(certificate.Description),
		certificate.IssueDate,
		nullable(certificate.RecipientAddress),
		nullable(certificate.IssuerAddress),
		nullable(certificate.MintReference),
		nullable(certificate.ProofSignature),
		certificate.CreatedAt,
		certificate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create certificate %s: %w", certificate.ID, err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (models.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+allColumns+` FROM certificates WHERE id = $1`, id)
	certificate, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Certificate{}, fmt.Errorf("find certificate %s: %w", id, sentinel.ErrNotFound)
		}
		return models.Certificate{}, fmt.Errorf("find certificate %s: %w", id, err)
	}
	return certificate, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, address string) ([]models.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+allColumns+` FROM certificates
        WHERE recipient_address = $1
        ORDER BY created_at DESC`, address)
	if err != nil {
		return nil, fmt.Errorf("list certificates by recipient: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+allColumns+` FROM certificates ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

// AttachChainProof relies on a conditional UPDATE so the write-once check and
// the write happen in one statement. Two racing callers cannot both match the
// IS NULL guard; the loser sees zero rows affected and gets ErrImmutable.
func (s *PostgresStore) AttachChainProof(ctx context.Context, id string, proof models.ChainProof) (models.Certificate, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
        UPDATE certificates
        SET mint_reference  = COALESCE(mint_reference, NULLIF($2, '')),
            proof_signature = COALESCE(proof_signature, NULLIF($3, '')),
            updated_at      = $4
        WHERE id = $1
          AND ($2 = '' OR mint_reference IS NULL)
          AND ($3 = '' OR proof_signature IS NULL)`,
		id, proof.MintReference, proof.ProofSignature, now)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("attach chain proof %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Certificate{}, fmt.Errorf("attach chain proof %s: %w", id, err)
	}
	if affected == 0 {
		// Distinguish a missing record from a write-once violation.
		if _, findErr := s.FindByID(ctx, id); findErr != nil {
			return models.Certificate{}, findErr
		}
		return models.Certificate{}, fmt.Errorf("attach chain proof %s: %w", id, sentinel.ErrImmutable)
	}
	return s.FindByID(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (models.Certificate, error) {
	var certificate models.Certificate
	var description, recipient, issuer, mintReference, proofSignature sql.NullString
	err := row.Scan(
		&certificate.ID,
		&certificate.HolderName,
		&certificate.HolderEmail,
		&certificate.Title,
		&description,
		&certificate.IssueDate,
		&recipient,
		&issuer,
		&mintReference,
		&proofSignature,
		&certificate.CreatedAt,
		&certificate.UpdatedAt,
	)
	if err != nil {
		return models.Certificate{}, err
	}
	certificate.Description = description.String
	certificate.RecipientAddress = recipient.String
	certificate.IssuerAddress = issuer.String
	certificate.MintReference = mintReference.String
	certificate.ProofSignature = proofSignature.String
	certificate.Status = certificate.DeriveStatus()
	return certificate, nil
}

func collectCertificates(rows *sql.Rows) ([]models.Certificate, error) {
	certificates := []models.Certificate{}
	for rows.Next() {
		certificate, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certificates = append(certificates, certificate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certificates, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
