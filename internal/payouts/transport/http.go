// Package transport provides HTTP handlers for the payouts domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claimworks/bountyd/internal/payouts/domain"
)

// Service defines the payout service interface for HTTP transport.
type Service interface {
	MarkClaimable(ctx context.Context, req domain.MarkRequest) (*domain.Claimable, error)
	Claim(ctx context.Context, req domain.ClaimRequest) (*domain.ClaimResult, error)
	Get(ctx context.Context, submissionID int64) (*domain.Claimable, error)
}

// Handler handles HTTP requests for payouts.
type Handler struct {
	svc Service
}

// NewHandler creates a new payouts HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only payout routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{submissionId}", h.handleGet)
}

// RegisterWriteRoutes registers write payout routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/{submissionId}/mark", h.handleMark)
	r.Post("/{submissionId}/claim", h.handleClaim)
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	id, ok := submissionID(w, r)
	if !ok {
		return
	}

	var req domain.MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	req.SubmissionID = id

	c, err := h.svc.MarkClaimable(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrSubmissionNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Submission not found")
		case errors.Is(err, domain.ErrVerificationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "No verification recorded for this submission")
		case errors.Is(err, domain.ErrNotAccepted):
			writeError(w, http.StatusConflict, "NOT_ACCEPTED", err.Error())
		case errors.Is(err, domain.ErrAlreadyMarked):
			writeError(w, http.StatusConflict, "ALREADY_MARKED", "Payout already marked for this submission")
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "INSUFFICIENT_BALANCE", "Bounty pool cannot cover this payout")
		case errors.Is(err, domain.ErrSettlementFailed):
			writeError(w, http.StatusBadGateway, "SETTLEMENT_FAILED", "Settlement ledger unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to mark payout")
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := submissionID(w, r)
	if !ok {
		return
	}

	var req domain.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	req.SubmissionID = id

	result, err := h.svc.Claim(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "No payout marked for this submission")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the recipient may claim")
		case errors.Is(err, domain.ErrAlreadyClaimed):
			writeError(w, http.StatusConflict, "ALREADY_CLAIMED", "Payout already claimed")
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "INSUFFICIENT_BALANCE", "Bounty pool cannot cover this payout")
		case errors.Is(err, domain.ErrSettlementFailed):
			writeError(w, http.StatusBadGateway, "SETTLEMENT_FAILED", "Settlement ledger unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to claim payout")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := submissionID(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "No payout marked for this submission")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get payout")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func submissionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "submissionId"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid submission ID")
		return 0, false
	}
	return id, true
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
