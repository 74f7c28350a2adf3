package domain

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware returns a service middleware that logs all payout
// operations. Money moves here, so every call is logged at info.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) MarkClaimable(ctx context.Context, req MarkRequest) (*Claimable, error) {
	start := time.Now()
	c, err := m.next.MarkClaimable(ctx, req)
	m.logger.Info("MarkClaimable",
		"submission_id", req.SubmissionID,
		"bounty_id", req.BountyID,
		"recipient", req.Recipient,
		"amount", req.Amount,
		"duration", time.Since(start),
		"error", err,
	)
	return c, err
}

func (m *loggingMiddleware) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	start := time.Now()
	result, err := m.next.Claim(ctx, req)
	m.logger.Info("Claim",
		"submission_id", req.SubmissionID,
		"requester", req.Requester,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (m *loggingMiddleware) Get(ctx context.Context, submissionID int64) (*Claimable, error) {
	start := time.Now()
	c, err := m.next.Get(ctx, submissionID)
	m.logger.Debug("Get",
		"submission_id", submissionID,
		"duration", time.Since(start),
		"error", err,
	)
	return c, err
}
