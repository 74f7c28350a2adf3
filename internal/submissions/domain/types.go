package domain

import "time"

// RegisterRequest is a request to register a piece of content.
type RegisterRequest struct {
	Submitter   string `json:"submitter"`
	ContentHash string `json:"contentHash"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType"`
	// RequestID is an optional client-chosen idempotency key. Retrying a
	// register with the same key returns the original submission instead
	// of creating a new one.
	RequestID string `json:"requestId,omitempty"`
}

// Submission is a registered piece of content.
type Submission struct {
	ID            int64     `json:"id"`
	Submitter     string    `json:"submitter"`
	ContentHash   string    `json:"contentHash"`
	URI           string    `json:"uri"`
	MIMEType      string    `json:"mimeType"`
	SettlementRef string    `json:"settlementRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
