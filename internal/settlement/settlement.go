// Package settlement records workflow effects on an external value ledger.
// Every state-changing operation yields an opaque settlement reference that
// is persisted next to the row it belongs to.
package settlement

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the ledger could not be reached or rejected the call.
var ErrUnavailable = errors.New("settlement ledger unavailable")

// Ledger is the external settlement surface. Implementations must be safe
// for concurrent use. Calls respect ctx deadlines; a failed call has no
// partial effect the caller needs to undo.
type Ledger interface {
	// RegisterSubmission anchors a content registration.
	RegisterSubmission(ctx context.Context, submitter, contentHash string) (string, error)
	// RecordVerification anchors an accept/reject decision.
	RecordVerification(ctx context.Context, submissionID int64, verifier string, accepted bool) (string, error)
	// RecordDeposit anchors a pool funding event.
	RecordDeposit(ctx context.Context, bountyID string, amount int64) (string, error)
	// AuthorizePayout anchors a mark-claimable authorization.
	AuthorizePayout(ctx context.Context, submissionID int64, recipient string, amount int64) (string, error)
	// ReleasePayout transfers the payout to the recipient. This is the only
	// call with real value movement; it must be invoked at most once per
	// submission.
	ReleasePayout(ctx context.Context, submissionID int64, recipient string, amount int64) (string, error)
	// Status reports whether the ledger is reachable.
	Status(ctx context.Context) error
}
