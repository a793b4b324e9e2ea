package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/certificate/models"
	pkgerrors "attest/pkg/domain-errors"
)

func validRequest() models.CreateRequest {
	return models.CreateRequest{
		HolderName:  "Ada",
		HolderEmail: "a@example.com",
		Title:       "Completion",
		IssueDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateReportsFirstMissingFieldInFixedOrder(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.CreateRequest)
		wantField string
	}{
		{
			name:      "missing holder_name",
			mutate:    func(r *models.CreateRequest) { r.HolderName = "" },
			wantField: "holder_name",
		},
		{
			name:      "missing holder_email",
			mutate:    func(r *models.CreateRequest) { r.HolderEmail = "" },
			wantField: "holder_email",
		},
		{
			name:      "missing title",
			mutate:    func(r *models.CreateRequest) { r.Title = "" },
			wantField: "title",
		},
		{
			name:      "missing issue_date",
			mutate:    func(r *models.CreateRequest) { r.IssueDate = time.Time{} },
			wantField: "issue_date",
		},
		{
			name: "all missing reports holder_name first",
			mutate: func(r *models.CreateRequest) {
				*r = models.CreateRequest{}
			},
			wantField: "holder_name",
		},
		{
			name: "title and issue_date missing reports title first",
			mutate: func(r *models.CreateRequest) {
				r.Title = ""
				r.IssueDate = time.Time{}
			},
			wantField: "title",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeBadRequest))
			assert.Equal(t, tt.wantField, pkgerrors.FieldOf(err))
		})
	}
}

func TestValidateAcceptsOptionalFieldsAbsent(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate())

	req.Description = "optional"
	req.RecipientAddress = ""
	req.IssuerAddress = ""
	require.NoError(t, req.Validate())
}

func TestDeriveStatus(t *testing.T) {
	certificate := models.Certificate{}
	assert.Equal(t, models.StatusUnminted, certificate.DeriveStatus())

	certificate.MintReference = "mint123"
	assert.Equal(t, models.StatusPartiallyMinted, certificate.DeriveStatus())

	certificate.ProofSignature = "sig456"
	assert.Equal(t, models.StatusMinted, certificate.DeriveStatus())
}
