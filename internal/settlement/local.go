package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Local is an in-process ledger for development and single-node deployments.
// References are 32-byte hex digests over the operation's fields plus a
// random nonce, so retried operations still produce distinct refs.
type Local struct {
	logger *slog.Logger
}

// NewLocal creates a local ledger
func NewLocal(logger *slog.Logger) *Local {
	return &Local{logger: logger}
}

func (l *Local) ref(parts ...any) string {
	h := sha256.New()
	fmt.Fprint(h, parts...)
	fmt.Fprint(h, uuid.New().String())
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func (l *Local) RegisterSubmission(ctx context.Context, submitter, contentHash string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := l.ref("register", submitter, contentHash)
	l.logger.Debug("settlement register", "ref", ref)
	return ref, nil
}

func (l *Local) RecordVerification(ctx context.Context, submissionID int64, verifier string, accepted bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := l.ref("verify", submissionID, verifier, accepted)
	l.logger.Debug("settlement verify", "ref", ref)
	return ref, nil
}

func (l *Local) RecordDeposit(ctx context.Context, bountyID string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := l.ref("deposit", bountyID, amount)
	l.logger.Debug("settlement deposit", "ref", ref)
	return ref, nil
}

func (l *Local) AuthorizePayout(ctx context.Context, submissionID int64, recipient string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := l.ref("mark", submissionID, recipient, amount)
	l.logger.Debug("settlement mark", "ref", ref)
	return ref, nil
}

func (l *Local) ReleasePayout(ctx context.Context, submissionID int64, recipient string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := l.ref("claim", submissionID, recipient, amount)
	l.logger.Debug("settlement claim", "ref", ref)
	return ref, nil
}

func (l *Local) Status(ctx context.Context) error {
	return ctx.Err()
}
