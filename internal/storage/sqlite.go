package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Submissions. AUTOINCREMENT keeps IDs strictly increasing and never reused.
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submitter TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		uri TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		request_id TEXT UNIQUE,
		settlement_ref TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- Verifications, at most one per submission
	CREATE TABLE IF NOT EXISTS verifications (
		submission_id INTEGER PRIMARY KEY REFERENCES submissions(id),
		verifier TEXT NOT NULL,
		accepted INTEGER NOT NULL,
		reason_code INTEGER NOT NULL DEFAULT 0,
		settlement_ref TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- Bounty pools
	CREATE TABLE IF NOT EXISTS bounty_pools (
		bounty_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TEXT DEFAULT (datetime('now'))
	);

	-- Deposit audit trail
	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		bounty_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		settlement_ref TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- Claimable payouts, at most one per submission
	CREATE TABLE IF NOT EXISTS claimables (
		submission_id INTEGER PRIMARY KEY REFERENCES submissions(id),
		bounty_id TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount INTEGER NOT NULL,
		claimed INTEGER NOT NULL DEFAULT 0,
		mark_ref TEXT,
		claim_ref TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		claimed_at TEXT
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_submissions_request_id ON submissions(request_id);
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

// isSQLiteConstraint reports whether err is a violation of the named constraint class.
func isSQLiteConstraint(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind+" constraint failed")
}

// CreateSubmission inserts a submission and assigns its sequential ID
func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	query := `
		INSERT INTO submissions (submitter, content_hash, uri, mime_type, request_id, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
	`
	var requestID any
	if sub.RequestID != "" {
		requestID = sub.RequestID
	}
	res, err := s.db.ExecContext(ctx, query, sub.Submitter, sub.ContentHash, sub.URI, sub.MIMEType, requestID, sub.SettlementRef)
	if err != nil {
		if isSQLiteConstraint(err, "UNIQUE") {
			return ErrAlreadyExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = id
	return nil
}

// GetSubmission retrieves a submission by ID
func (s *SQLiteStore) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	query := `
		SELECT id, submitter, content_hash, uri, mime_type, COALESCE(request_id, ''), COALESCE(settlement_ref, ''), created_at
		FROM submissions
		WHERE id = ?
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
func (s *SQLiteStore) GetSubmissionByRequestID(ctx context.Context, requestID string) (*Submission, error) {
	query := `
		SELECT id, submitter, content_hash, uri, mime_type, COALESCE(request_id, ''), COALESCE(settlement_ref, ''), created_at
		FROM submissions
		WHERE request_id = ?
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
func (s *SQLiteStore) CreateVerification(ctx context.Context, v *Verification) error {
	query := `
		INSERT INTO verifications (submission_id, verifier, accepted, reason_code, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
	`
	_, err := s.db.ExecContext(ctx, query, v.SubmissionID, v.Verifier, v.Accepted, v.ReasonCode, v.SettlementRef)
	if err != nil {
		if isSQLiteConstraint(err, "UNIQUE") {
			return ErrAlreadyExists
		}
		if isSQLiteConstraint(err, "FOREIGN KEY") {
			return ErrNotFound
		}
	}
	return err
}

// GetVerification retrieves the verification for a submission
func (s *SQLiteStore) GetVerification(ctx context.Context, submissionID int64) (*Verification, error) {
	query := `
		SELECT submission_id, verifier, accepted, reason_code, COALESCE(settlement_ref, ''), created_at
		FROM verifications
		WHERE submission_id = ?
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
func (s *SQLiteStore) AddDeposit(ctx context.Context, d *Deposit) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO bounty_pools (bounty_id, balance, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(bounty_id) DO UPDATE SET balance = balance + excluded.balance, updated_at = datetime('now')
	`
	if _, err := tx.ExecContext(ctx, upsert, d.BountyID, d.Amount); err != nil {
		return 0, err
	}

	if d.ID == "" {
		d.ID = generateID()
	}
	insert := `
		INSERT INTO deposits (id, bounty_id, amount, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, datetime('now'))
	`
	if _, err := tx.ExecContext(ctx, insert, d.ID, d.BountyID, d.Amount, d.SettlementRef); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, "SELECT balance FROM bounty_pools WHERE bounty_id = ?", d.BountyID).Scan(&balance); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// BountyBalance reads a pool's balance; a never-funded pool reads as zero
func (s *SQLiteStore) BountyBalance(ctx context.Context, bountyID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM bounty_pools WHERE bounty_id = ?", bountyID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// CreateClaimable inserts a payout authorization
func (s *SQLiteStore) CreateClaimable(ctx context.Context, c *Claimable) error {
	query := `
		INSERT INTO claimables (submission_id, bounty_id, recipient, amount, claimed, mark_ref, created_at)
		VALUES (?, ?, ?, ?, 0, ?, datetime('now'))
	`
	_, err := s.db.ExecContext(ctx, query, c.SubmissionID, c.BountyID, c.Recipient, c.Amount, c.MarkRef)
	if err != nil {
		if isSQLiteConstraint(err, "UNIQUE") {
			return ErrAlreadyExists
		}
		if isSQLiteConstraint(err, "FOREIGN KEY") {
			return ErrNotFound
		}
	}
	return err
}

// GetClaimable retrieves the claimable for a submission
func (s *SQLiteStore) GetClaimable(ctx context.Context, submissionID int64) (*Claimable, error) {
	query := `
		SELECT submission_id, bounty_id, recipient, amount, claimed, COALESCE(mark_ref, ''), COALESCE(claim_ref, ''), created_at, COALESCE(claimed_at, '')
		FROM claimables
		WHERE submission_id = ?
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
func (s *SQLiteStore) SettleClaim(ctx context.Context, submissionID int64, claimRef string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var bountyID string
	var amount int64
	var claimed bool
	err = tx.QueryRowContext(ctx,
		"SELECT bounty_id, amount, claimed FROM claimables WHERE submission_id = ?", submissionID,
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

	// Conditional debit; the balance guard makes overdraft impossible even if
	// a concurrent writer slipped in between the read above and this update.
	res, err := tx.ExecContext(ctx,
		"UPDATE bounty_pools SET balance = balance - ?, updated_at = datetime('now') WHERE bounty_id = ? AND balance >= ?",
		amount, bountyID, amount,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrInsufficientBalance
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE claimables SET claimed = 1, claim_ref = ?, claimed_at = datetime('now') WHERE submission_id = ? AND claimed = 0",
		claimRef, submissionID,
	)
	if err != nil {
		return 0, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrAlreadyClaimed
	}

	var remaining int64
	if err := tx.QueryRowContext(ctx, "SELECT balance FROM bounty_pools WHERE bounty_id = ?", bountyID).Scan(&remaining); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return remaining, nil
}

// CreateAPIKey creates a new API key
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, datetime('now'))", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL")
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
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ?", id)
	return err
}
