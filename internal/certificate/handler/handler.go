package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/certificate/models"
	"attest/internal/certificate/service"
	"attest/internal/platform/middleware"
	"attest/internal/transport/http/shared"
	pkgerrors "attest/pkg/domain-errors"
)

// Service defines the coordinator operations the handler depends on.
type Service interface {
	Issue(ctx context.Context, req models.CreateRequest) (models.Certificate, error)
	Get(ctx context.Context, id string) (models.Certificate, error)
	List(ctx context.Context) ([]models.Certificate, error)
	PrepareMint(ctx context.Context, id string) (service.PrepareMintResult, error)
	CompleteMint(ctx context.Context, id string, signedPayload string) (models.Certificate, error)
	MintDirect(ctx context.Context, id string) (models.Certificate, error)
}

// Handler exposes certificate issuance and minting endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	// auth is nil when no signing key is configured; routes are then public.
	auth func(http.Handler) http.Handler
}

func New(svc Service, logger *slog.Logger, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{service: svc, logger: logger, auth: auth}
}

// Register mounts the certificate routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Post("/", h.handleIssue)
		r.Get("/", h.handleList)
		r.Get("/{certificateID}", h.handleGet)
		r.Post("/{certificateID}/mint", h.handleMintDirect)
		r.Post("/{certificateID}/mint/prepare", h.handlePrepareMint)
		r.Post("/{certificateID}/mint/complete", h.handleCompleteMint)
	})
}

// issueRequest is the wire shape; issue_date accepts a date or a full RFC3339
// timestamp.
type issueRequest struct {
	HolderName       string `json:"holder_name"`
	HolderEmail      string `json:"holder_email"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	IssueDate        string `json:"issue_date"`
	RecipientAddress string `json:"recipient_address"`
	IssuerAddress    string `json:"issuer_address"`
}

type completeMintRequest struct {
	SignedPayload string `json:"signed_payload"`
}

type prepareMintResponse struct {
	Certificate models.Certificate `json:"certificate"`
	Payload     string             `json:"payload"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}
	issueDate, err := parseIssueDate(req.IssueDate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	certificate, err := h.service.Issue(r.Context(), models.CreateRequest{
		HolderName:       req.HolderName,
		HolderEmail:      req.HolderEmail,
		Title:            req.Title,
		Description:      req.Description,
		IssueDate:        issueDate,
		RecipientAddress: req.RecipientAddress,
		IssuerAddress:    req.IssuerAddress,
	})
	if err != nil {
		h.logError(r, "issue failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "certificate issued", certificate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	certificates, err := h.service.List(r.Context())
	if err != nil {
		h.logError(r, "list failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "", certificates)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certificate, err := h.service.Get(r.Context(), chi.URLParam(r, "certificateID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "", certificate)
}

func (h *Handler) handlePrepareMint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "certificateID")
	result, err := h.service.PrepareMint(r.Context(), id)
	if err != nil {
		h.logError(r, "prepare mint failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "mint prepared", prepareMintResponse{
		Certificate: result.Certificate,
		Payload:     result.Payload,
	})
}

func (h *Handler) handleCompleteMint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "certificateID")
	var req completeMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}
	certificate, err := h.service.CompleteMint(r.Context(), id, req.SignedPayload)
	if err != nil {
		h.logError(r, "complete mint failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "certificate minted", certificate)
}

func (h *Handler) handleMintDirect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "certificateID")
	certificate, err := h.service.MintDirect(r.Context(), id)
	if err != nil {
		h.logError(r, "direct mint failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "certificate minted", certificate)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
	)
}

func parseIssueDate(raw string) (time.Time, error) {
	if raw == "" {
		// Leave the zero value for Validate to report in field order.
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, pkgerrors.NewField(pkgerrors.CodeBadRequest, "issue_date", "expected YYYY-MM-DD or RFC 3339")
}
