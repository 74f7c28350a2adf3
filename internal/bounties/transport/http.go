// Package transport provides HTTP handlers for the bounties domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimworks/bountyd/internal/bounties/domain"
)

// Service defines the bounty service interface for HTTP transport.
type Service interface {
	Deposit(ctx context.Context, req domain.DepositRequest) (*domain.DepositResult, error)
	Get(ctx context.Context, bountyID string) (*domain.Pool, error)
}

// Handler handles HTTP requests for bounty pools.
type Handler struct {
	svc Service
}

// NewHandler creates a new bounties HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only bounty routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{bountyId}", h.handleGet)
}

// RegisterWriteRoutes registers write bounty routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/{bountyId}/deposits", h.handleDeposit)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req domain.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	req.BountyID = chi.URLParam(r, "bountyId")

	result, err := h.svc.Deposit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrSettlementFailed):
			writeError(w, http.StatusBadGateway, "SETTLEMENT_FAILED", "Settlement ledger unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record deposit")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.Get(r.Context(), chi.URLParam(r, "bountyId"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get bounty pool")
		return
	}

	writeJSON(w, http.StatusOK, pool)
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
