// Package transport provides HTTP handlers for the submissions domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claimworks/bountyd/internal/submissions/domain"
)

// Service defines the submission service interface for HTTP transport.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Submission, error)
	Get(ctx context.Context, id int64) (*domain.Submission, error)
}

// Handler handles HTTP requests for submissions.
type Handler struct {
	svc Service
}

// NewHandler creates a new submissions HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only submission routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{id}", h.handleGet)
}

// RegisterWriteRoutes registers write submission routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleRegister)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	sub, err := h.svc.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrSettlementFailed):
			writeError(w, http.StatusBadGateway, "SETTLEMENT_FAILED", "Settlement ledger unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register submission")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid submission ID")
		return
	}

	sub, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
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
