package domain

import "time"

// MarkRequest authorizes a one-time payout for an accepted submission.
// Amount is a decimal string parsed with integer arithmetic.
type MarkRequest struct {
	SubmissionID int64  `json:"submissionId"`
	BountyID     string `json:"bountyId"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
}

// ClaimRequest asks to release a marked payout to its recipient.
type ClaimRequest struct {
	SubmissionID int64  `json:"submissionId"`
	Requester    string `json:"requester"`
}

// Claimable is a payout authorization and its claim state.
type Claimable struct {
	SubmissionID  int64     `json:"submissionId"`
	BountyID      string    `json:"bountyId"`
	Recipient     string    `json:"recipient"`
	Amount        int64     `json:"amount"`
	AmountDecimal string    `json:"amountDecimal"`
	Claimed       bool      `json:"claimed"`
	MarkRef       string    `json:"markRef,omitempty"`
	ClaimRef      string    `json:"claimRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ClaimedAt     time.Time `json:"claimedAt,omitzero"`
}

// ClaimResult describes a settled claim.
type ClaimResult struct {
	SubmissionID     int64  `json:"submissionId"`
	BountyID         string `json:"bountyId"`
	Recipient        string `json:"recipient"`
	Amount           int64  `json:"amount"`
	AmountDecimal    string `json:"amountDecimal"`
	ClaimRef         string `json:"claimRef"`
	RemainingBalance int64  `json:"remainingBalance"`
}
