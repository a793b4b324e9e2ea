package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/certificate/handler"
	"attest/internal/certificate/service"
	"attest/internal/certificate/store"
	"attest/internal/chain/chaintest"
	jwttoken "attest/internal/jwt_token"
	"attest/internal/platform/middleware"
)

const recipientAddr = "11111111111111111111111111111111"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T, stub *chaintest.Stub, auth func(http.Handler) http.Handler) chi.Router {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	svc := service.New(store.NewMemoryStore(), stub, logger,
		service.WithIssuerAddress("issuer-system"))
	r := chi.NewRouter()
	handler.New(svc, logger, auth).Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func issueBody() map[string]string {
	return map[string]string{
		"holder_name":       "Ada Lovelace",
		"holder_email":      "ada@example.com",
		"title":             "Compiler Course Completion",
		"issue_date":        "2024-01-15",
		"recipient_address": recipientAddr,
	}
}

type certificatePayload struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	MintReference  string `json:"mint_reference"`
	ProofSignature string `json:"proof_signature"`
}

func issueCertificate(t *testing.T, r http.Handler) certificatePayload {
	t.Helper()
	rec, env := doJSON(t, r, http.MethodPost, "/certificates", issueBody())
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	var cert certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &cert))
	return cert
}

func TestIssueEndpoint(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)

	cert := issueCertificate(t, r)
	assert.NotEmpty(t, cert.ID)
	assert.Equal(t, "unminted", cert.Status)
	assert.Empty(t, cert.MintReference)
}

func TestIssueEndpointValidation(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)

	body := issueBody()
	delete(body, "title")
	rec, env := doJSON(t, r, http.MethodPost, "/certificates", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "title", env.Field)
}

func TestIssueEndpointBadDate(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)

	body := issueBody()
	body["issue_date"] = "January 15th"
	rec, env := doJSON(t, r, http.MethodPost, "/certificates", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "issue_date", env.Field)
}

func TestIssueEndpointMalformedBody(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)

	req := httptest.NewRequest(http.MethodPost, "/certificates", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEndpoint(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)
	cert := issueCertificate(t, r)

	rec, env := doJSON(t, r, http.MethodGet, "/certificates/"+cert.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, cert.ID, found.ID)

	rec, env = doJSON(t, r, http.MethodGet, "/certificates/unknown-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestListEndpoint(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)
	issueCertificate(t, r)
	issueCertificate(t, r)

	rec, env := doJSON(t, r, http.MethodGet, "/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var certs []certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &certs))
	assert.Len(t, certs, 2)
}

func TestTwoPhaseMintEndpoints(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)
	cert := issueCertificate(t, r)

	rec, env := doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint/prepare", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prepared struct {
		Certificate certificatePayload `json:"certificate"`
		Payload     string             `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &prepared))
	assert.Equal(t, "partially_minted", prepared.Certificate.Status)
	assert.Equal(t, "mint123", prepared.Certificate.MintReference)
	assert.Equal(t, "abc", prepared.Payload)

	rec, env = doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint/complete",
		map[string]string{"signed_payload": "signed-abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	var minted certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &minted))
	assert.Equal(t, "minted", minted.Status)
	assert.Equal(t, "sig456", minted.ProofSignature)
}

func TestPrepareMintConflict(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)
	cert := issueCertificate(t, r)

	rec, _ := doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint/prepare", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint/prepare", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "partially_minted")
}

func TestMintChainUnavailable(t *testing.T) {
	stub := chaintest.NewStub()
	stub.MintErr = fmt.Errorf("rpc unreachable")
	r := newRouter(t, stub, nil)
	cert := issueCertificate(t, r)

	rec, env := doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, env.Success)

	// The record is still servable and unminted.
	rec, env = doJSON(t, r, http.MethodGet, "/certificates/"+cert.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, "unminted", found.Status)
}

func TestMintDirectEndpoint(t *testing.T) {
	r := newRouter(t, chaintest.NewStub(), nil)
	cert := issueCertificate(t, r)

	rec, env := doJSON(t, r, http.MethodPost, "/certificates/"+cert.ID+"/mint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var minted certificatePayload
	require.NoError(t, json.Unmarshal(env.Data, &minted))
	assert.Equal(t, "minted", minted.Status)
	assert.Equal(t, "mint123", minted.MintReference)
	assert.Equal(t, "sig456", minted.ProofSignature)
}

func TestRoutesRequireAuthWhenConfigured(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	validator := jwttoken.NewValidator("test-signing-key", "attest")
	r := newRouter(t, chaintest.NewStub(), middleware.RequireAuth(validator, logger))

	rec, env := doJSON(t, r, http.MethodPost, "/certificates", issueBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	token, err := validator.Sign("issuer-service", time.Hour)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(issueBody()))
	req := httptest.NewRequest(http.MethodPost, "/certificates", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
