// Package events publishes workflow lifecycle events so downstream
// consumers (indexers, notification services) can follow the bounty
// workflow without polling the API.
package events

import "context"

// Publisher emits one event per committed workflow transition. Publishing
// is best effort: a failed publish is logged and never rolls back the
// transition it describes.
type Publisher interface {
	SubmissionRegistered(ctx context.Context, e SubmissionRegistered)
	VerificationRecorded(ctx context.Context, e VerificationRecorded)
	PoolFunded(ctx context.Context, e PoolFunded)
	PayoutMarked(ctx context.Context, e PayoutMarked)
	PayoutClaimed(ctx context.Context, e PayoutClaimed)
	Close()
}

// SubmissionRegistered is emitted when a submission enters the registry
type SubmissionRegistered struct {
	SubmissionID int64  `json:"submission_id"`
	Submitter    string `json:"submitter"`
	ContentHash  string `json:"content_hash"`
	URI          string `json:"uri"`
	MIMEType     string `json:"mime_type"`
}

// VerificationRecorded is emitted when a decision lands
type VerificationRecorded struct {
	SubmissionID int64  `json:"submission_id"`
	Verifier     string `json:"verifier"`
	Accepted     bool   `json:"accepted"`
	ReasonCode   int    `json:"reason_code"`
}

// PoolFunded is emitted after a deposit is credited
type PoolFunded struct {
	BountyID string `json:"bounty_id"`
	Amount   int64  `json:"amount"`
	Balance  int64  `json:"balance"`
}

// PayoutMarked is emitted when a submission becomes claimable
type PayoutMarked struct {
	SubmissionID int64  `json:"submission_id"`
	BountyID     string `json:"bounty_id"`
	Recipient    string `json:"recipient"`
	Amount       int64  `json:"amount"`
}

// PayoutClaimed is emitted after a payout settles
type PayoutClaimed struct {
	SubmissionID int64  `json:"submission_id"`
	BountyID     string `json:"bounty_id"`
	Recipient    string `json:"recipient"`
	Amount       int64  `json:"amount"`
	ClaimRef     string `json:"claim_ref"`
}

// Nop discards all events
type Nop struct{}

func (Nop) SubmissionRegistered(context.Context, SubmissionRegistered) {}
func (Nop) VerificationRecorded(context.Context, VerificationRecorded) {}
func (Nop) PoolFunded(context.Context, PoolFunded)                     {}
func (Nop) PayoutMarked(context.Context, PayoutMarked)                 {}
func (Nop) PayoutClaimed(context.Context, PayoutClaimed)               {}
func (Nop) Close()                                                     {}
