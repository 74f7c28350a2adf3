// Package transport provides HTTP handlers for the verifications domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claimworks/bountyd/internal/verifications/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	Record(ctx context.Context, req domain.RecordRequest) (*domain.Verification, error)
	Get(ctx context.Context, submissionID int64) (*domain.Verification, error)
}

// Handler handles HTTP requests for verifications.
type Handler struct {
	svc Service
}

// NewHandler creates a new verifications HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only verification routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{submissionId}", h.handleGet)
}

// RegisterWriteRoutes registers write verification routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleRecord)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	v, err := h.svc.Record(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrSubmissionNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Submission not found")
		case errors.Is(err, domain.ErrAlreadyVerified):
			writeError(w, http.StatusConflict, "ALREADY_VERIFIED", "Submission already has a verification decision")
		case errors.Is(err, domain.ErrSettlementFailed):
			writeError(w, http.StatusBadGateway, "SETTLEMENT_FAILED", "Settlement ledger unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record verification")
		}
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "submissionId"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid submission ID")
		return
	}

	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Verification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get verification")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
