// Package domain contains the business logic for verification decisions.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claimworks/bountyd/internal/events"
	"github.com/claimworks/bountyd/internal/observability/metrics"
	"github.com/claimworks/bountyd/internal/settlement"
	"github.com/claimworks/bountyd/internal/storage"
	"github.com/claimworks/bountyd/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotFound           = errors.New("verification not found")
	ErrAlreadyVerified    = errors.New("submission already verified")
	ErrInvalidInput       = errors.New("invalid verification")
	ErrSettlementFailed   = errors.New("settlement failed")
)

// Store is the storage surface the verification service needs.
type Store interface {
	GetSubmission(ctx context.Context, id int64) (*storage.Submission, error)
	CreateVerification(ctx context.Context, v *storage.Verification) error
	GetVerification(ctx context.Context, submissionID int64) (*storage.Verification, error)
}

// Service defines the verification service interface.
type Service interface {
	// Record records the accept/reject decision for a submission. Each
	// submission takes exactly one decision; later attempts fail with
	// ErrAlreadyVerified no matter which way they decide.
	Record(ctx context.Context, req RecordRequest) (*Verification, error)

	// Get retrieves the decision for a submission.
	Get(ctx context.Context, submissionID int64) (*Verification, error)
}

type service struct {
	store             Store
	ledger            settlement.Ledger
	publisher         events.Publisher
	settlementTimeout time.Duration
}

// NewService creates a new verification service.
func NewService(store Store, ledger settlement.Ledger, publisher events.Publisher, settlementTimeout time.Duration) Service {
	return &service{
		store:             store,
		ledger:            ledger,
		publisher:         publisher,
		settlementTimeout: settlementTimeout,
	}
}

// Record records a verification decision.
func (s *service) Record(ctx context.Context, req RecordRequest) (*Verification, error) {
	if req.SubmissionID < 1 {
		metrics.VerificationRecord(decisionLabel(req.Accepted), "invalid")
		return nil, fmt.Errorf("%w: submission ID must be positive", ErrInvalidInput)
	}
	if err := validation.ValidateAddress(req.Verifier); err != nil {
		metrics.VerificationRecord(decisionLabel(req.Accepted), "invalid")
		return nil, fmt.Errorf("%w: verifier: %v", ErrInvalidInput, err)
	}
	if req.ReasonCode < 0 {
		metrics.VerificationRecord(decisionLabel(req.Accepted), "invalid")
		return nil, fmt.Errorf("%w: reason code must not be negative", ErrInvalidInput)
	}

	if _, err := s.store.GetSubmission(ctx, req.SubmissionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.VerificationRecord(decisionLabel(req.Accepted), "not_found")
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}

	// Cheap pre-check; the insert below is the authoritative gate
	if _, err := s.store.GetVerification(ctx, req.SubmissionID); err == nil {
		metrics.VerificationRecord(decisionLabel(req.Accepted), "duplicate")
		return nil, ErrAlreadyVerified
	}

	sctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.ledger.RecordVerification(sctx, req.SubmissionID, req.Verifier, req.Accepted)
	if err != nil {
		metrics.SettlementCall("verify", "error")
		metrics.VerificationRecord(decisionLabel(req.Accepted), "settlement_error")
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	metrics.SettlementCall("verify", "ok")

	v := &storage.Verification{
		SubmissionID:  req.SubmissionID,
		Verifier:      req.Verifier,
		Accepted:      req.Accepted,
		ReasonCode:    req.ReasonCode,
		SettlementRef: ref,
	}
	if err := s.store.CreateVerification(ctx, v); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost the race with a concurrent decision; the first one stands
			metrics.VerificationRecord(decisionLabel(req.Accepted), "duplicate")
			return nil, ErrAlreadyVerified
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		metrics.VerificationRecord(decisionLabel(req.Accepted), "error")
		return nil, fmt.Errorf("creating verification: %w", err)
	}

	metrics.VerificationRecord(decisionLabel(req.Accepted), "ok")
	s.publisher.VerificationRecorded(ctx, events.VerificationRecorded{
		SubmissionID: v.SubmissionID,
		Verifier:     v.Verifier,
		Accepted:     v.Accepted,
		ReasonCode:   v.ReasonCode,
	})

	return toVerification(v), nil
}

// Get retrieves the decision for a submission.
func (s *service) Get(ctx context.Context, submissionID int64) (*Verification, error) {
	v, err := s.store.GetVerification(ctx, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting verification: %w", err)
	}
	return toVerification(v), nil
}

func decisionLabel(accepted bool) string {
	if accepted {
		return "accept"
	}
	return "reject"
}

func toVerification(v *storage.Verification) *Verification {
	return &Verification{
		SubmissionID:  v.SubmissionID,
		Verifier:      v.Verifier,
		Accepted:      v.Accepted,
		ReasonCode:    v.ReasonCode,
		SettlementRef: v.SettlementRef,
		CreatedAt:     parseTimestamp(v.CreatedAt),
	}
}

// parseTimestamp handles both SQLite and Postgres text timestamps
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.999999-07", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
