package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claimworks/bountyd/internal/config"
)

// SubmissionStore handles submission operations
type SubmissionStore interface {
	// CreateSubmission inserts a submission and fills in its assigned ID.
	// Returns ErrAlreadyExists if the submission carries a request ID that
	// was already used.
	CreateSubmission(ctx context.Context, s *Submission) error
	GetSubmission(ctx context.Context, id int64) (*Submission, error)
	GetSubmissionByRequestID(ctx context.Context, requestID string) (*Submission, error)
}

// VerificationStore handles verification operations
type VerificationStore interface {
	// CreateVerification records a decision. Returns ErrAlreadyExists if the
	// submission already has one; the insert and the uniqueness check are a
	// single atomic statement.
	CreateVerification(ctx context.Context, v *Verification) error
	GetVerification(ctx context.Context, submissionID int64) (*Verification, error)
}

// BountyStore handles bounty pool operations
type BountyStore interface {
	// AddDeposit credits a pool (creating it at zero first if new), records
	// the deposit row, and returns the resulting balance.
	AddDeposit(ctx context.Context, d *Deposit) (int64, error)
	// BountyBalance returns 0 for a pool that has never been funded.
	BountyBalance(ctx context.Context, bountyID string) (int64, error)
}

// ClaimableStore handles claimable payout operations
type ClaimableStore interface {
	// CreateClaimable inserts a payout authorization. Returns
	// ErrAlreadyExists if the submission was already marked.
	CreateClaimable(ctx context.Context, c *Claimable) error
	GetClaimable(ctx context.Context, submissionID int64) (*Claimable, error)
	// SettleClaim debits the claimable's pool and flips claimed in one
	// transaction, returning the pool's remaining balance. Returns
	// ErrNotFound, ErrAlreadyClaimed, or ErrInsufficientBalance; on any
	// error neither effect is applied.
	SettleClaim(ctx context.Context, submissionID int64, claimRef string) (int64, error)
}

// APIKeyStore handles API key operations
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	SubmissionStore
	VerificationStore
	BountyStore
	ClaimableStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Submission is a registered piece of content
type Submission struct {
	ID            int64
	Submitter     string
	ContentHash   string
	URI           string
	MIMEType      string
	RequestID     string // optional client-supplied idempotency key
	SettlementRef string
	CreatedAt     string
}

// Verification is the one-time accept/reject decision over a submission
type Verification struct {
	SubmissionID  int64
	Verifier      string
	Accepted      bool
	ReasonCode    int
	SettlementRef string
	CreatedAt     string
}

// BountyPool is a named balance of stablecoin in smallest units
type BountyPool struct {
	BountyID  string
	Balance   int64
	UpdatedAt string
}

// Deposit is one funding event against a pool, kept as an audit record
type Deposit struct {
	ID            string
	BountyID      string
	Amount        int64
	SettlementRef string
	CreatedAt     string
}

// Claimable is a one-time payout authorization for a submission
type Claimable struct {
	SubmissionID int64
	BountyID     string
	Recipient    string
	Amount       int64
	Claimed      bool
	MarkRef      string
	ClaimRef     string
	CreatedAt    string
	ClaimedAt    string
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
