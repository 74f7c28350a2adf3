// Package client provides a Go client for the bountyd API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/mod/semver"
)

// MinServerVersion is the oldest server this client understands.
const MinServerVersion = "0.3.0"

// Client is a bountyd API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new bountyd client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submission is a registered piece of content
type Submission struct {
	ID            int64  `json:"id"`
	Submitter     string `json:"submitter"`
	ContentHash   string `json:"contentHash"`
	URI           string `json:"uri"`
	MIMEType      string `json:"mimeType"`
	SettlementRef string `json:"settlementRef,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// RegisterRequest is the request for registering a submission
type RegisterRequest struct {
	Submitter   string `json:"submitter"`
	ContentHash string `json:"contentHash"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType"`
	RequestID   string `json:"requestId,omitempty"`
}

// Verification is the decision recorded for a submission
type Verification struct {
	SubmissionID  int64  `json:"submissionId"`
	Verifier      string `json:"verifier"`
	Accepted      bool   `json:"accepted"`
	ReasonCode    int    `json:"reasonCode"`
	SettlementRef string `json:"settlementRef,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// VerifyRequest is the request for recording a verification decision
type VerifyRequest struct {
	SubmissionID int64  `json:"submissionId"`
	Verifier     string `json:"verifier"`
	Accepted     bool   `json:"accepted"`
	ReasonCode   int    `json:"reasonCode,omitempty"`
}

// DepositRequest is the request for funding a bounty pool
type DepositRequest struct {
	Amount string `json:"amount"`
}

// DepositResult describes a credited deposit
type DepositResult struct {
	BountyID       string `json:"bountyId"`
	Amount         int64  `json:"amount"`
	AmountDecimal  string `json:"amountDecimal"`
	Balance        int64  `json:"balance"`
	BalanceDecimal string `json:"balanceDecimal"`
	SettlementRef  string `json:"settlementRef,omitempty"`
}

// Pool describes a bounty pool's current balance
type Pool struct {
	BountyID       string `json:"bountyId"`
	Balance        int64  `json:"balance"`
	BalanceDecimal string `json:"balanceDecimal"`
}

// MarkRequest is the request for marking a payout claimable
type MarkRequest struct {
	BountyID  string `json:"bountyId"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// ClaimRequest is the request for claiming a marked payout
type ClaimRequest struct {
	Requester string `json:"requester"`
}

// Claimable is a payout authorization and its claim state
type Claimable struct {
	SubmissionID  int64  `json:"submissionId"`
	BountyID      string `json:"bountyId"`
	Recipient     string `json:"recipient"`
	Amount        int64  `json:"amount"`
	AmountDecimal string `json:"amountDecimal"`
	Claimed       bool   `json:"claimed"`
	MarkRef       string `json:"markRef,omitempty"`
	ClaimRef      string `json:"claimRef,omitempty"`
	CreatedAt     string `json:"createdAt"`
	ClaimedAt     string `json:"claimedAt,omitempty"`
}

// ClaimResult describes a settled claim
type ClaimResult struct {
	SubmissionID     int64  `json:"submissionId"`
	BountyID         string `json:"bountyId"`
	Recipient        string `json:"recipient"`
	Amount           int64  `json:"amount"`
	AmountDecimal    string `json:"amountDecimal"`
	ClaimRef         string `json:"claimRef"`
	RemainingBalance int64  `json:"remainingBalance"`
}

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Register registers a new content submission
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Submission, error) {
	var resp Submission
	if err := c.post(ctx, "/api/v1/submissions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSubmission gets a submission by ID
func (c *Client) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	var resp Submission
	if err := c.get(ctx, fmt.Sprintf("/api/v1/submissions/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify records the verification decision for a submission
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*Verification, error) {
	var resp Verification
	if err := c.post(ctx, "/api/v1/verifications", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVerification gets the decision recorded for a submission
func (c *Client) GetVerification(ctx context.Context, submissionID int64) (*Verification, error) {
	var resp Verification
	if err := c.get(ctx, fmt.Sprintf("/api/v1/verifications/%d", submissionID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Deposit credits a bounty pool
func (c *Client) Deposit(ctx context.Context, bountyID, amount string) (*DepositResult, error) {
	var resp DepositResult
	path := fmt.Sprintf("/api/v1/bounties/%s/deposits", url.PathEscape(bountyID))
	if err := c.post(ctx, path, DepositRequest{Amount: amount}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPool gets a bounty pool's balance
func (c *Client) GetPool(ctx context.Context, bountyID string) (*Pool, error) {
	var resp Pool
	if err := c.get(ctx, "/api/v1/bounties/"+url.PathEscape(bountyID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkClaimable authorizes a payout for an accepted submission
func (c *Client) MarkClaimable(ctx context.Context, submissionID int64, req MarkRequest) (*Claimable, error) {
	var resp Claimable
	path := fmt.Sprintf("/api/v1/payouts/%d/mark", submissionID)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Claim releases a marked payout to its recipient
func (c *Client) Claim(ctx context.Context, submissionID int64, requester string) (*ClaimResult, error) {
	var resp ClaimResult
	path := fmt.Sprintf("/api/v1/payouts/%d/claim", submissionID)
	if err := c.post(ctx, path, ClaimRequest{Requester: requester}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetClaimable gets the payout state for a submission
func (c *Client) GetClaimable(ctx context.Context, submissionID int64) (*Claimable, error) {
	var resp Claimable
	if err := c.get(ctx, fmt.Sprintf("/api/v1/payouts/%d", submissionID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ServerVersion returns the server's reported version
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/version", &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// CheckCompatibility verifies the server is recent enough for this client
func (c *Client) CheckCompatibility(ctx context.Context) error {
	version, err := c.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("fetching server version: %w", err)
	}

	v := "v" + version
	if !semver.IsValid(v) {
		// Dev builds report non-semver versions; assume compatible
		return nil
	}
	if semver.Compare(v, "v"+MinServerVersion) < 0 {
		return fmt.Errorf("server version %s is older than minimum supported %s", version, MinServerVersion)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return &errResp.Error
}
