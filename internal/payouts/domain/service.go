// Package domain contains the payout workflow coordination logic. It is
// the only place claims are settled: mark and claim for a submission are
// serialized on a per-submission mutex, and debits against a pool are
// serialized on a per-bounty mutex, always acquired submission first.
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

// Common errors returned by the payout service.
var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrVerificationNotFound = errors.New("verification not found")
	ErrNotFound             = errors.New("payout not found")
	ErrNotAccepted          = errors.New("submission not accepted")
	ErrAlreadyMarked        = errors.New("payout already marked")
	ErrAlreadyClaimed       = errors.New("payout already claimed")
	ErrForbidden            = errors.New("requester is not the recipient")
	ErrInsufficientBalance  = errors.New("insufficient pool balance")
	ErrInvalidInput         = errors.New("invalid payout request")
	ErrSettlementFailed     = errors.New("settlement failed")
)

// Store is the storage surface the payout service needs.
type Store interface {
	GetSubmission(ctx context.Context, id int64) (*storage.Submission, error)
	GetVerification(ctx context.Context, submissionID int64) (*storage.Verification, error)
	CreateClaimable(ctx context.Context, c *storage.Claimable) error
	GetClaimable(ctx context.Context, submissionID int64) (*storage.Claimable, error)
	SettleClaim(ctx context.Context, submissionID int64, claimRef string) (int64, error)
	BountyBalance(ctx context.Context, bountyID string) (int64, error)
}

// Service defines the payout service interface.
type Service interface {
	// MarkClaimable authorizes a one-time payout for an accepted
	// submission. The pool must cover the amount at mark time, but
	// nothing is debited until the claim settles; the balance is
	// checked again then, since other claims may drain it meanwhile.
	MarkClaimable(ctx context.Context, req MarkRequest) (*Claimable, error)

	// Claim releases a marked payout to its recipient, debiting the pool
	// exactly once. Only the recipient may claim.
	Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error)

	// Get retrieves the payout state for a submission.
	Get(ctx context.Context, submissionID int64) (*Claimable, error)
}

type service struct {
	store             Store
	ledger            settlement.Ledger
	publisher         events.Publisher
	settlementTimeout time.Duration

	submissionLocks *keyedMutex
	bountyLocks     *keyedMutex
}

// NewService creates a new payout service.
func NewService(store Store, ledger settlement.Ledger, publisher events.Publisher, settlementTimeout time.Duration) Service {
	return &service{
		store:             store,
		ledger:            ledger,
		publisher:         publisher,
		settlementTimeout: settlementTimeout,
		submissionLocks:   newKeyedMutex(),
		bountyLocks:       newKeyedMutex(),
	}
}

// MarkClaimable authorizes a payout for an accepted submission.
func (s *service) MarkClaimable(ctx context.Context, req MarkRequest) (*Claimable, error) {
	if req.SubmissionID < 1 {
		metrics.PayoutMark("invalid")
		return nil, fmt.Errorf("%w: submission ID must be positive", ErrInvalidInput)
	}
	if err := validation.ValidateBountyID(req.BountyID); err != nil {
		metrics.PayoutMark("invalid")
		return nil, fmt.Errorf("%w: bountyId: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateAddress(req.Recipient); err != nil {
		metrics.PayoutMark("invalid")
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidInput, err)
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		metrics.PayoutMark("invalid")
		return nil, fmt.Errorf("%w: amount: %v", ErrInvalidInput, err)
	}

	key := lockKey(req.SubmissionID)
	s.submissionLocks.Lock(key)
	defer s.submissionLocks.Unlock(key)

	if _, err := s.store.GetSubmission(ctx, req.SubmissionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PayoutMark("not_found")
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}

	v, err := s.store.GetVerification(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PayoutMark("not_found")
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("getting verification: %w", err)
	}
	if !v.Accepted {
		metrics.PayoutMark("not_accepted")
		return nil, fmt.Errorf("%w: submission was rejected", ErrNotAccepted)
	}

	if _, err := s.store.GetClaimable(ctx, req.SubmissionID); err == nil {
		metrics.PayoutMark("duplicate")
		return nil, ErrAlreadyMarked
	}

	// The bounty lock spans the headroom check through the claimable
	// insert so a concurrent claim cannot drain the pool in between.
	s.bountyLocks.Lock(req.BountyID)
	defer s.bountyLocks.Unlock(req.BountyID)

	balance, err := s.store.BountyBalance(ctx, req.BountyID)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	if balance < amount {
		metrics.PayoutMark("insufficient")
		return nil, ErrInsufficientBalance
	}

	sctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.ledger.AuthorizePayout(sctx, req.SubmissionID, req.Recipient, amount)
	if err != nil {
		metrics.SettlementCall("mark", "error")
		metrics.PayoutMark("settlement_error")
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	metrics.SettlementCall("mark", "ok")

	c := &storage.Claimable{
		SubmissionID: req.SubmissionID,
		BountyID:     req.BountyID,
		Recipient:    req.Recipient,
		Amount:       amount,
		MarkRef:      ref,
	}
	if err := s.store.CreateClaimable(ctx, c); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			metrics.PayoutMark("duplicate")
			return nil, ErrAlreadyMarked
		}
		metrics.PayoutMark("error")
		return nil, fmt.Errorf("creating claimable: %w", err)
	}

	metrics.PayoutMark("ok")
	s.publisher.PayoutMarked(ctx, events.PayoutMarked{
		SubmissionID: c.SubmissionID,
		BountyID:     c.BountyID,
		Recipient:    c.Recipient,
		Amount:       c.Amount,
	})

	return toClaimable(c), nil
}

// Claim releases a marked payout to its recipient.
func (s *service) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	if req.SubmissionID < 1 {
		metrics.PayoutClaim("invalid")
		return nil, fmt.Errorf("%w: submission ID must be positive", ErrInvalidInput)
	}
	if err := validation.ValidateAddress(req.Requester); err != nil {
		metrics.PayoutClaim("invalid")
		return nil, fmt.Errorf("%w: requester: %v", ErrInvalidInput, err)
	}

	subKey := lockKey(req.SubmissionID)
	s.submissionLocks.Lock(subKey)
	defer s.submissionLocks.Unlock(subKey)

	c, err := s.store.GetClaimable(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PayoutClaim("not_found")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting claimable: %w", err)
	}
	if c.Claimed {
		metrics.PayoutClaim("duplicate")
		return nil, ErrAlreadyClaimed
	}
	if c.Recipient != req.Requester {
		metrics.PayoutClaim("forbidden")
		return nil, ErrForbidden
	}

	// Serialize debits per pool; submission lock is always taken first,
	// so the two namespaces cannot deadlock.
	s.bountyLocks.Lock(c.BountyID)
	defer s.bountyLocks.Unlock(c.BountyID)

	balance, err := s.store.BountyBalance(ctx, c.BountyID)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	if balance < c.Amount {
		metrics.PayoutClaim("insufficient")
		return nil, ErrInsufficientBalance
	}

	sctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.ledger.ReleasePayout(sctx, c.SubmissionID, c.Recipient, c.Amount)
	if err != nil {
		metrics.SettlementCall("claim", "error")
		metrics.PayoutClaim("settlement_error")
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	metrics.SettlementCall("claim", "ok")

	// Under the locks this cannot fail its guards; they stay in the SQL
	// so a crashed or restarted peer process cannot double-spend either.
	remaining, err := s.store.SettleClaim(ctx, c.SubmissionID, ref)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyClaimed):
			metrics.PayoutClaim("duplicate")
			return nil, ErrAlreadyClaimed
		case errors.Is(err, storage.ErrInsufficientBalance):
			metrics.PayoutClaim("insufficient")
			return nil, ErrInsufficientBalance
		case errors.Is(err, storage.ErrNotFound):
			metrics.PayoutClaim("not_found")
			return nil, ErrNotFound
		}
		metrics.PayoutClaim("error")
		return nil, fmt.Errorf("settling claim: %w", err)
	}

	metrics.PayoutClaim("ok")
	s.publisher.PayoutClaimed(ctx, events.PayoutClaimed{
		SubmissionID: c.SubmissionID,
		BountyID:     c.BountyID,
		Recipient:    c.Recipient,
		Amount:       c.Amount,
		ClaimRef:     ref,
	})

	return &ClaimResult{
		SubmissionID:     c.SubmissionID,
		BountyID:         c.BountyID,
		Recipient:        c.Recipient,
		Amount:           c.Amount,
		AmountDecimal:    validation.FormatAmount(c.Amount),
		ClaimRef:         ref,
		RemainingBalance: remaining,
	}, nil
}

// Get retrieves the payout state for a submission.
func (s *service) Get(ctx context.Context, submissionID int64) (*Claimable, error) {
	c, err := s.store.GetClaimable(ctx, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting claimable: %w", err)
	}
	return toClaimable(c), nil
}

func lockKey(submissionID int64) string {
	return fmt.Sprintf("s/%d", submissionID)
}

func toClaimable(c *storage.Claimable) *Claimable {
	return &Claimable{
		SubmissionID:  c.SubmissionID,
		BountyID:      c.BountyID,
		Recipient:     c.Recipient,
		Amount:        c.Amount,
		AmountDecimal: validation.FormatAmount(c.Amount),
		Claimed:       c.Claimed,
		MarkRef:       c.MarkRef,
		ClaimRef:      c.ClaimRef,
		CreatedAt:     parseTimestamp(c.CreatedAt),
		ClaimedAt:     parseTimestamp(c.ClaimedAt),
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
