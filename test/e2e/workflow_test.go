//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimworks/bountyd/pkg/client"
)

// TestWorkflow_FullLifecycle walks the whole path: register, verify,
// fund, mark, claim.
func TestWorkflow_FullLifecycle(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-workflow")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	// Register
	sub, err := c.Register(ctx, client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(1001),
		URI:         "ipfs://QmLifecycle",
		MIMEType:    "image/png",
	})
	require.NoError(t, err)
	require.NotZero(t, sub.ID)
	assert.NotEmpty(t, sub.SettlementRef)

	// Verify
	v, err := c.Verify(ctx, client.VerifyRequest{
		SubmissionID: sub.ID,
		Verifier:     verifierAddr,
		Accepted:     true,
	})
	require.NoError(t, err)
	assert.True(t, v.Accepted)

	// Fund
	deposit, err := c.Deposit(ctx, "lifecycle-pool", "20.00")
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000), deposit.Balance)

	// Mark
	claimable, err := c.MarkClaimable(ctx, sub.ID, client.MarkRequest{
		BountyID:  "lifecycle-pool",
		Recipient: recipientAddr,
		Amount:    "5.00",
	})
	require.NoError(t, err)
	assert.False(t, claimable.Claimed)
	assert.Equal(t, "5.000000", claimable.AmountDecimal)

	// Claim
	result, err := c.Claim(ctx, sub.ID, recipientAddr)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClaimRef)
	assert.Equal(t, int64(15_000_000), result.RemainingBalance)

	// Final state
	final, err := c.GetClaimable(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, final.Claimed)
	assert.Equal(t, result.ClaimRef, final.ClaimRef)
}

func TestWorkflow_VerifyOnce(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-verify-once")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	sub, err := c.Register(ctx, client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(1002),
		URI:         "ipfs://QmVerifyOnce",
		MIMEType:    "image/png",
	})
	require.NoError(t, err)

	_, err = c.Verify(ctx, client.VerifyRequest{
		SubmissionID: sub.ID,
		Verifier:     verifierAddr,
		Accepted:     false,
		ReasonCode:   3,
	})
	require.NoError(t, err)

	// Second decision is rejected, even if it flips the outcome
	_, err = c.Verify(ctx, client.VerifyRequest{
		SubmissionID: sub.ID,
		Verifier:     verifierAddr,
		Accepted:     true,
	})
	assertHTTPError(t, err, "ALREADY_VERIFIED")

	// The recorded decision is unchanged
	v, err := c.GetVerification(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, v.Accepted)
	assert.Equal(t, 3, v.ReasonCode)
}

func TestWorkflow_RejectedSubmissionCannotBeMarked(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-rejected-mark")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	sub, err := c.Register(ctx, client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(1003),
		URI:         "ipfs://QmRejected",
		MIMEType:    "image/png",
	})
	require.NoError(t, err)

	_, err = c.Verify(ctx, client.VerifyRequest{
		SubmissionID: sub.ID,
		Verifier:     verifierAddr,
		Accepted:     false,
	})
	require.NoError(t, err)

	_, err = c.MarkClaimable(ctx, sub.ID, client.MarkRequest{
		BountyID:  "rejected-pool",
		Recipient: recipientAddr,
		Amount:    "1.00",
	})
	assertHTTPError(t, err, "NOT_ACCEPTED")
}

func TestWorkflow_IdempotentRegister(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-idempotent")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	req := client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(1004),
		URI:         "ipfs://QmIdempotent",
		MIMEType:    "image/png",
		RequestID:   "e2e-idempotent-1",
	}

	first, err := c.Register(ctx, req)
	require.NoError(t, err)

	// Retrying with the same request ID returns the original submission
	second, err := c.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestWorkflow_UnverifiedSubmissionCannotBeMarked(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-unverified-mark")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	sub, err := c.Register(ctx, client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(1005),
		URI:         "ipfs://QmUnverified",
		MIMEType:    "image/png",
	})
	require.NoError(t, err)

	_, err = c.MarkClaimable(ctx, sub.ID, client.MarkRequest{
		BountyID:  "unverified-pool",
		Recipient: recipientAddr,
		Amount:    "1.00",
	})
	assertHTTPError(t, err, "NOT_FOUND")
}

func TestWorkflow_InvalidInputs(t *testing.T) {
	apiKey := createTestAPIKey(t, testCtx.Store, "test-invalid")
	c := newClient(testCtx.TestServer, apiKey)
	ctx := context.Background()

	tests := []struct {
		name string
		req  client.RegisterRequest
	}{
		{"bad submitter", client.RegisterRequest{
			Submitter: "not-an-address", ContentHash: contentHash(1), URI: "ipfs://Qm", MIMEType: "image/png",
		}},
		{"bad hash", client.RegisterRequest{
			Submitter: submitterAddr, ContentHash: "0x123", URI: "ipfs://Qm", MIMEType: "image/png",
		}},
		{"bad uri scheme", client.RegisterRequest{
			Submitter: submitterAddr, ContentHash: contentHash(1), URI: "ftp://example.com/f", MIMEType: "image/png",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Register(ctx, tt.req)
			assertHTTPError(t, err, "INVALID_REQUEST")
		})
	}
}
