package domain

import "time"

// RecordRequest is a request to record a verification decision.
type RecordRequest struct {
	SubmissionID int64  `json:"submissionId"`
	Verifier     string `json:"verifier"`
	Accepted     bool   `json:"accepted"`
	// ReasonCode classifies a rejection; zero means no reason given.
	ReasonCode int `json:"reasonCode,omitempty"`
}

// Verification is the one-time decision recorded for a submission.
type Verification struct {
	SubmissionID  int64     `json:"submissionId"`
	Verifier      string    `json:"verifier"`
	Accepted      bool      `json:"accepted"`
	ReasonCode    int       `json:"reasonCode"`
	SettlementRef string    `json:"settlementRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
