// Package domain contains the business logic for bounty pool funding.
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

// Common errors returned by the bounty service.
var (
	ErrInvalidInput     = errors.New("invalid deposit")
	ErrSettlementFailed = errors.New("settlement failed")
)

// Store is the storage surface the bounty service needs.
type Store interface {
	AddDeposit(ctx context.Context, d *storage.Deposit) (int64, error)
	BountyBalance(ctx context.Context, bountyID string) (int64, error)
}

// Service defines the bounty service interface.
type Service interface {
	// Deposit credits a pool, creating it on first use. Pools only ever
	// grow here; the claim path is the single point of debit.
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)

	// Get reads a pool's balance. A pool that was never funded reports zero.
	Get(ctx context.Context, bountyID string) (*Pool, error)
}

type service struct {
	store             Store
	ledger            settlement.Ledger
	publisher         events.Publisher
	settlementTimeout time.Duration
}

// NewService creates a new bounty service.
func NewService(store Store, ledger settlement.Ledger, publisher events.Publisher, settlementTimeout time.Duration) Service {
	return &service{
		store:             store,
		ledger:            ledger,
		publisher:         publisher,
		settlementTimeout: settlementTimeout,
	}
}

// Deposit credits a pool.
func (s *service) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	if err := validation.ValidateBountyID(req.BountyID); err != nil {
		metrics.BountyDeposit("invalid")
		return nil, fmt.Errorf("%w: bountyId: %v", ErrInvalidInput, err)
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		metrics.BountyDeposit("invalid")
		return nil, fmt.Errorf("%w: amount: %v", ErrInvalidInput, err)
	}

	sctx, cancel := context.WithTimeout(ctx, s.settlementTimeout)
	defer cancel()
	ref, err := s.ledger.RecordDeposit(sctx, req.BountyID, amount)
	if err != nil {
		metrics.SettlementCall("deposit", "error")
		metrics.BountyDeposit("settlement_error")
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	metrics.SettlementCall("deposit", "ok")

	balance, err := s.store.AddDeposit(ctx, &storage.Deposit{
		BountyID:      req.BountyID,
		Amount:        amount,
		SettlementRef: ref,
	})
	if err != nil {
		metrics.BountyDeposit("error")
		return nil, fmt.Errorf("adding deposit: %w", err)
	}

	metrics.BountyDeposit("ok")
	s.publisher.PoolFunded(ctx, events.PoolFunded{
		BountyID: req.BountyID,
		Amount:   amount,
		Balance:  balance,
	})

	return &DepositResult{
		BountyID:       req.BountyID,
		Amount:         amount,
		AmountDecimal:  validation.FormatAmount(amount),
		Balance:        balance,
		BalanceDecimal: validation.FormatAmount(balance),
		SettlementRef:  ref,
	}, nil
}

// Get reads a pool's balance.
func (s *service) Get(ctx context.Context, bountyID string) (*Pool, error) {
	if err := validation.ValidateBountyID(bountyID); err != nil {
		return nil, fmt.Errorf("%w: bountyId: %v", ErrInvalidInput, err)
	}
	balance, err := s.store.BountyBalance(ctx, bountyID)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	return &Pool{
		BountyID:       bountyID,
		Balance:        balance,
		BalanceDecimal: validation.FormatAmount(balance),
	}, nil
}
