// Package domain contains the business logic for content submissions.
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

// Common errors returned by the submission service.
var (
	ErrNotFound         = errors.New("submission not found")
	ErrInvalidInput     = errors.New("invalid submission")
	ErrSettlementFailed = errors.New("settlement failed")
)

// Store is the storage surface the submission service needs.
type Store interface {
	CreateSubmission(ctx context.Context, s *storage.Submission) error
	GetSubmission(ctx context.Context, id int64) (*storage.Submission, error)
	GetSubmissionByRequestID(ctx context.Context, requestID string) (*storage.Submission, error)
}

// Service defines the submission service interface.
type Service interface {
	// Register registers new content and assigns it the next submission ID.
	Register(ctx context.Context, req RegisterRequest) (*Submission, error)

	// Get retrieves a submission by ID.
	Get(ctx context.Context, id int64) (*Submission, error)
}

type service struct {
	store             Store
	ledger            settlement.Ledger
	publisher         events.Publisher
	settlementTimeout time.Duration
}

// NewService creates a new submission service.
func NewService(store Store, ledger settlement.Ledger, publisher events.Publisher, settlementTimeout time.Duration) Service {
	return &service{
		store:             store,
		ledger:            ledger,
		publisher:         publisher,
		settlementTimeout: settlementTimeout,
	}
}

// Register registers new content.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*Submission, error) {
	if err := validation.ValidateAddress(req.Submitter); err != nil {
		metrics.SubmissionRegister("invalid")
		return nil, fmt.Errorf("%w: submitter: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateContentHash(req.ContentHash); err != nil {
		metrics.SubmissionRegister("invalid")
		return nil, fmt.Errorf("%w: contentHash: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateURI(req.URI); err != nil {
		metrics.SubmissionRegister("invalid")
		return nil, fmt.Errorf("%w: uri: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateMIMEType(req.MIMEType); err != nil {
		metrics.SubmissionRegister("invalid")
		return nil, fmt.Errorf("%w: mimeType: %v", ErrInvalidInput, err)
	}

	// Idempotent retry: return the original registration for a known key
	if req.RequestID != "" {
		if existing, err := s.store.GetSubmissionByRequestID(ctx, req.RequestID); err == nil {
			metrics.SubmissionRegister("duplicate")
			return toSubmission(existing), nil
		}
	}

	sctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.ledger.RegisterSubmission(sctx, req.Submitter, req.ContentHash)
	if err != nil {
		metrics.SettlementCall("register", "error")
		metrics.SubmissionRegister("settlement_error")
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	metrics.SettlementCall("register", "ok")

	sub := &storage.Submission{
		Submitter:     req.Submitter,
		ContentHash:   req.ContentHash,
		URI:           req.URI,
		MIMEType:      req.MIMEType,
		RequestID:     req.RequestID,
		SettlementRef: ref,
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) && req.RequestID != "" {
			// Lost a race with a concurrent retry carrying the same key
			if existing, gerr := s.store.GetSubmissionByRequestID(ctx, req.RequestID); gerr == nil {
				metrics.SubmissionRegister("duplicate")
				return toSubmission(existing), nil
			}
		}
		metrics.SubmissionRegister("error")
		return nil, fmt.Errorf("creating submission: %w", err)
	}

	metrics.SubmissionRegister("ok")
	s.publisher.SubmissionRegistered(ctx, events.SubmissionRegistered{
		SubmissionID: sub.ID,
		Submitter:    sub.Submitter,
		ContentHash:  sub.ContentHash,
		URI:          sub.URI,
		MIMEType:     sub.MIMEType,
	})

	return toSubmission(sub), nil
}

// Get retrieves a submission by ID.
func (s *service) Get(ctx context.Context, id int64) (*Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return toSubmission(sub), nil
}

func toSubmission(s *storage.Submission) *Submission {
	return &Submission{
		ID:            s.ID,
		Submitter:     s.Submitter,
		ContentHash:   s.ContentHash,
		URI:           s.URI,
		MIMEType:      s.MIMEType,
		SettlementRef: s.SettlementRef,
		CreatedAt:     parseTimestamp(s.CreatedAt),
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
