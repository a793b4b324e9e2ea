package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/certificate/models"
	"attest/internal/transport/http/shared"
	pkgerrors "attest/pkg/domain-errors"
)

// Service is the read-only verification capability.
type Service interface {
	VerifyByID(ctx context.Context, id string) (models.Certificate, error)
	VerifyByRecipient(ctx context.Context, address string) ([]models.Certificate, error)
}

// Handler exposes public verification endpoints. They take no auth: anyone
// holding a certificate id or address may check it, and nothing here can
// mutate a record.
type Handler struct {
	service Service
}

func New(svc Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/verify", h.handleQuery)
	r.Get("/verify/{certificateID}", h.handleByID)
	r.Get("/verify/recipient/{address}", h.handleByRecipient)
}

// handleQuery mirrors the query-parameter contract: ?id= looks up one
// certificate, ?recipient= lists holdings.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if id := query.Get("id"); id != "" {
		h.respondByID(w, r, id)
		return
	}
	if address := query.Get("recipient"); address != "" {
		h.respondByRecipient(w, r, address)
		return
	}
	shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "missing id or recipient query parameter"))
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request) {
	h.respondByID(w, r, chi.URLParam(r, "certificateID"))
}

func (h *Handler) handleByRecipient(w http.ResponseWriter, r *http.Request) {
	h.respondByRecipient(w, r, chi.URLParam(r, "address"))
}

func (h *Handler) respondByID(w http.ResponseWriter, r *http.Request, id string) {
	certificate, err := h.service.VerifyByID(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "certificate verified", certificate)
}

func (h *Handler) respondByRecipient(w http.ResponseWriter, r *http.Request, address string) {
	certificates, err := h.service.VerifyByRecipient(r.Context(), address)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	message := fmt.Sprintf("found %d certificates for this address", len(certificates))
	shared.WriteJSON(w, http.StatusOK, message, certificates)
}
