package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		submitter TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		uri TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		request_id TEXT UNIQUE,
		settlement_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS verifications (
		submission_id BIGINT PRIMARY KEY REFERENCES submissions(id),
		verifier TEXT NOT NULL,
		accepted BOOLEAN NOT NULL,
		reason_code INTEGER NOT NULL DEFAULT 0,
		settlement_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS bounty_pools (
		bounty_id TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		bounty_id TEXT NOT NULL,
		amount BIGINT NOT NULL,
		settlement_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS claimables (
		submission_id BIGINT PRIMARY KEY REFERENCES submissions(id),
		bounty_id TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount BIGINT NOT NULL,
		claimed BOOLEAN NOT NULL DEFAULT FALSE,
		mark_ref TEXT,
		claim_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_bounty ON deposits(bounty_id);
	CREATE INDEX IF NOT EXISTS idx_claimables_bounty ON claimables(bounty_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// pgErrCode extracts the SQLSTATE code from a pgx error, or ""
func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// CreateSubmission inserts a submission and assigns its sequential ID
func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	query := `
		INSERT INTO submissions (submitter, content_hash, uri, mime_type, request_id, settlement_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at::text
	`
	var requestID any
	if sub.RequestID != "" {
		requestID = sub.RequestID
	}
	err := s.db.QueryRowContext(ctx, query, sub.Submitter, sub.ContentHash, sub.URI, sub.MIMEType, requestID, sub.SettlementRef).
		Scan(&sub.ID, &sub.CreatedAt)
	if pgErrCode(err) == "23505" {
		return ErrAlreadyExists
	}
	return err
}

// GetSubmission retrieves a submission by ID
func (s *PostgresStore) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	query := `
		SELECT id, submitter, content_hash, uri, mime_type, COALESCE(request_id, ''), COALESCE(settlement_ref, ''), created_at::text
		FROM submissions
		WHERE id = $1
	`
	var sub Submission
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.Submitter, &sub.ContentHash, &sub.URI, &sub.MIMEType, &sub.RequestID, &sub.SettlementRef, &sub.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &sub, err
}

// GetSubmissionByRequestID retrieves a submission by its idempotency key
func (s *PostgresStore) GetSubmissionByRequestID(ctx context.Context, requestID string) (*Submission, error) {
	query := `
		SELECT id, submitter, content_hash, uri, mime_type, COALESCE(request_id, ''), COALESCE(settlement_ref, ''), created_at::text
		FROM submissions
		WHERE request_id = $1
	`
	var sub Submission
	err := s.db.QueryRowContext(ctx, query, requestID).Scan(
		&sub.ID, &sub.Submitter, &sub.ContentHash, &sub.URI, &sub.MIMEType, &sub.RequestID, &sub.SettlementRef, &sub.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &sub, err
}

// CreateVerification records a verification decision
func (s *PostgresStore) CreateVerification(ctx context.Context, v *Verification) error {
	query := `
		INSERT INTO verifications (submission_id, verifier, accepted, reason_code, settlement_ref)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, v.SubmissionID, v.Verifier, v.Accepted, v.ReasonCode, v.SettlementRef)
	switch pgErrCode(err) {
	case "23505":
		return ErrAlreadyExists
	case "23503":
		return ErrNotFound
	}
	return err
}

// GetVerification retrieves the verification for a submission
func (s *PostgresStore) GetVerification(ctx context.Context, submissionID int64) (*Verification, error) {
	query := `
		SELECT submission_id, verifier, accepted, reason_code, COALESCE(settlement_ref, ''), created_at::text
		FROM verifications
		WHERE submission_id = $1
	`
	var v Verification
	err := s.db.QueryRowContext(ctx, query, submissionID).Scan(
		&v.SubmissionID, &v.Verifier, &v.Accepted, &v.ReasonCode, &v.SettlementRef, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &v, err
}

// AddDeposit credits a pool and records the deposit, returning the new balance
func (s *PostgresStore) AddDeposit(ctx context.Context, d *Deposit) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO bounty_pools (bounty_id, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (bounty_id) DO UPDATE SET balance = bounty_pools.balance + EXCLUDED.balance, updated_at = now()
		RETURNING balance
	`
	var balance int64
	if err := tx.QueryRowContext(ctx, upsert, d.BountyID, d.Amount).Scan(&balance); err != nil {
		return 0, err
	}

	if d.ID == "" {
		d.ID = generateID()
	}
	insert := `
		INSERT INTO deposits (id, bounty_id, amount, settlement_ref)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, insert, d.ID, d.BountyID, d.Amount, d.SettlementRef); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// BountyBalance reads a pool's balance; a never-funded pool reads as zero
func (s *PostgresStore) BountyBalance(ctx context.Context, bountyID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM bounty_pools WHERE bounty_id = $1", bountyID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// CreateClaimable inserts a payout authorization
func (s *PostgresStore) CreateClaimable(ctx context.Context, c *Claimable) error {
	query := `
		INSERT INTO claimables (submission_id, bounty_id, recipient, amount, claimed, mark_ref)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`
	_, err := s.db.ExecContext(ctx, query, c.SubmissionID, c.BountyID, c.Recipient, c.Amount, c.MarkRef)
	switch pgErrCode(err) {
	case "23505":
		return ErrAlreadyExists
	case "23503":
		return ErrNotFound
	}
	return err
}

// GetClaimable retrieves the claimable for a submission
func (s *PostgresStore) GetClaimable(ctx context.Context, submissionID int64) (*Claimable, error) {
	query := `
		SELECT submission_id, bounty_id, recipient, amount, claimed, COALESCE(mark_ref, ''), COALESCE(claim_ref, ''), created_at::text, COALESCE(claimed_at::text, '')
		FROM claimables
		WHERE submission_id = $1
	`
	var c Claimable
	err := s.db.QueryRowContext(ctx, query, submissionID).Scan(
		&c.SubmissionID, &c.BountyID, &c.Recipient, &c.Amount, &c.Claimed, &c.MarkRef, &c.ClaimRef, &c.CreatedAt, &c.ClaimedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &c, err
}

// SettleClaim debits the pool and marks the claimable claimed in one transaction
func (s *PostgresStore) SettleClaim(ctx context.Context, submissionID int64, claimRef string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var bountyID string
	var amount int64
	var claimed bool
	err = tx.QueryRowContext(ctx,
		"SELECT bounty_id, amount, claimed FROM claimables WHERE submission_id = $1 FOR UPDATE", submissionID,
	).Scan(&bountyID, &amount, &claimed)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if claimed {
		return 0, ErrAlreadyClaimed
	}

	var remaining int64
	err = tx.QueryRowContext(ctx,
		"UPDATE bounty_pools SET balance = balance - $1, updated_at = now() WHERE bounty_id = $2 AND balance >= $1 RETURNING balance",
		amount, bountyID,
	).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE claimables SET claimed = TRUE, claim_ref = $1, claimed_at = now() WHERE submission_id = $2 AND claimed = FALSE",
		claimRef, submissionID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrAlreadyClaimed
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return remaining, nil
}

// CreateAPIKey creates a new API key
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name) VALUES ($1, $2, $3)", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at::text FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = now() WHERE id = $1", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at::text, last_used_at::text FROM api_keys WHERE revoked_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = now() WHERE id = $1", id)
	return err
}
