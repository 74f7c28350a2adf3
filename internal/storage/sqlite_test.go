package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"log/slog"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "bountyd-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	dbPath := filepath.Join(tmpDir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func TestSQLiteSubmissions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateAssignsSequentialIDs", func(t *testing.T) {
		first := &Submission{
			Submitter:   "0x1111111111111111111111111111111111111111",
			ContentHash: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			URI:         "ipfs://QmFirst",
			MIMEType:    "image/png",
		}
		if err := store.CreateSubmission(ctx, first); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
		if first.ID != 1 {
			t.Errorf("first submission ID = %d, want 1", first.ID)
		}

		second := &Submission{
			Submitter:   "0x2222222222222222222222222222222222222222",
			ContentHash: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			URI:         "ipfs://QmSecond",
			MIMEType:    "video/mp4",
		}
		if err := store.CreateSubmission(ctx, second); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
		if second.ID != 2 {
			t.Errorf("second submission ID = %d, want 2", second.ID)
		}
	})

	t.Run("GetSubmission", func(t *testing.T) {
		got, err := store.GetSubmission(ctx, 1)
		if err != nil {
			t.Fatalf("GetSubmission() error = %v", err)
		}
		if got.URI != "ipfs://QmFirst" {
			t.Errorf("GetSubmission().URI = %v, want ipfs://QmFirst", got.URI)
		}
		if got.MIMEType != "image/png" {
			t.Errorf("GetSubmission().MIMEType = %v, want image/png", got.MIMEType)
		}
	})

	t.Run("GetSubmissionNotFound", func(t *testing.T) {
		_, err := store.GetSubmission(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetSubmission(999) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("RequestIDUnique", func(t *testing.T) {
		sub := &Submission{
			Submitter:   "0x3333333333333333333333333333333333333333",
			ContentHash: "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc",
			URI:         "https://example.com/c",
			MIMEType:    "text/plain",
			RequestID:   "req-123",
		}
		if err := store.CreateSubmission(ctx, sub); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}

		dup := &Submission{
			Submitter:   "0x3333333333333333333333333333333333333333",
			ContentHash: "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc",
			URI:         "https://example.com/c",
			MIMEType:    "text/plain",
			RequestID:   "req-123",
		}
		if err := store.CreateSubmission(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("duplicate request ID error = %v, want ErrAlreadyExists", err)
		}

		byReq, err := store.GetSubmissionByRequestID(ctx, "req-123")
		if err != nil {
			t.Fatalf("GetSubmissionByRequestID() error = %v", err)
		}
		if byReq.ID != sub.ID {
			t.Errorf("GetSubmissionByRequestID().ID = %d, want %d", byReq.ID, sub.ID)
		}
	})

	t.Run("EmptyRequestIDsDoNotCollide", func(t *testing.T) {
		// NULL request_id rows must not trip the unique index
		for i := 0; i < 2; i++ {
			sub := &Submission{
				Submitter:   "0x4444444444444444444444444444444444444444",
				ContentHash: "0xdddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd",
				URI:         "https://example.com/d",
				MIMEType:    "text/plain",
			}
			if err := store.CreateSubmission(ctx, sub); err != nil {
				t.Fatalf("CreateSubmission() without request ID error = %v", err)
			}
		}
	})
}

func TestSQLiteVerifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := &Submission{
		Submitter:   "0x1111111111111111111111111111111111111111",
		ContentHash: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		URI:         "ipfs://QmFirst",
		MIMEType:    "image/png",
	}
	if err := store.CreateSubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		v := &Verification{
			SubmissionID: sub.ID,
			Verifier:     "0x9999999999999999999999999999999999999999",
			Accepted:     true,
		}
		if err := store.CreateVerification(ctx, v); err != nil {
			t.Fatalf("CreateVerification() error = %v", err)
		}

		got, err := store.GetVerification(ctx, sub.ID)
		if err != nil {
			t.Fatalf("GetVerification() error = %v", err)
		}
		if !got.Accepted {
			t.Error("GetVerification().Accepted = false, want true")
		}
		if got.ReasonCode != 0 {
			t.Errorf("GetVerification().ReasonCode = %d, want 0", got.ReasonCode)
		}
	})

	t.Run("SecondVerificationRejected", func(t *testing.T) {
		v := &Verification{
			SubmissionID: sub.ID,
			Verifier:     "0x8888888888888888888888888888888888888888",
			Accepted:     false,
			ReasonCode:   4,
		}
		if err := store.CreateVerification(ctx, v); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("second verification error = %v, want ErrAlreadyExists", err)
		}

		// Original decision is untouched
		got, err := store.GetVerification(ctx, sub.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Accepted {
			t.Error("first verification was overwritten")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.GetVerification(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetVerification(999) error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteBountyPools(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("UnknownPoolReadsZero", func(t *testing.T) {
		balance, err := store.BountyBalance(ctx, "never-funded")
		if err != nil {
			t.Fatalf("BountyBalance() error = %v", err)
		}
		if balance != 0 {
			t.Errorf("BountyBalance() = %d, want 0", balance)
		}
	})

	t.Run("DepositsAccumulate", func(t *testing.T) {
		balance, err := store.AddDeposit(ctx, &Deposit{BountyID: "wildlife-photos", Amount: 50_000_000})
		if err != nil {
			t.Fatalf("AddDeposit() error = %v", err)
		}
		if balance != 50_000_000 {
			t.Errorf("balance after first deposit = %d, want 50000000", balance)
		}

		balance, err = store.AddDeposit(ctx, &Deposit{BountyID: "wildlife-photos", Amount: 25_500_000})
		if err != nil {
			t.Fatalf("AddDeposit() error = %v", err)
		}
		if balance != 75_500_000 {
			t.Errorf("balance after second deposit = %d, want 75500000", balance)
		}

		read, err := store.BountyBalance(ctx, "wildlife-photos")
		if err != nil {
			t.Fatal(err)
		}
		if read != 75_500_000 {
			t.Errorf("BountyBalance() = %d, want 75500000", read)
		}
	})

	t.Run("PoolsAreIndependent", func(t *testing.T) {
		if _, err := store.AddDeposit(ctx, &Deposit{BountyID: "other-pool", Amount: 1_000_000}); err != nil {
			t.Fatal(err)
		}
		balance, err := store.BountyBalance(ctx, "wildlife-photos")
		if err != nil {
			t.Fatal(err)
		}
		if balance != 75_500_000 {
			t.Errorf("BountyBalance(wildlife-photos) = %d, want 75500000", balance)
		}
	})
}

func TestSQLiteSettleClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := &Submission{
		Submitter:   "0x1111111111111111111111111111111111111111",
		ContentHash: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		URI:         "ipfs://QmFirst",
		MIMEType:    "image/png",
	}
	if err := store.CreateSubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddDeposit(ctx, &Deposit{BountyID: "pool-1", Amount: 10_000_000}); err != nil {
		t.Fatal(err)
	}

	claimable := &Claimable{
		SubmissionID: sub.ID,
		BountyID:     "pool-1",
		Recipient:    "0x1111111111111111111111111111111111111111",
		Amount:       7_000_000,
	}
	if err := store.CreateClaimable(ctx, claimable); err != nil {
		t.Fatalf("CreateClaimable() error = %v", err)
	}

	t.Run("DuplicateMarkRejected", func(t *testing.T) {
		dup := &Claimable{SubmissionID: sub.ID, BountyID: "pool-1", Recipient: claimable.Recipient, Amount: 1}
		if err := store.CreateClaimable(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("duplicate claimable error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("SettleDebitsAndFlips", func(t *testing.T) {
		remaining, err := store.SettleClaim(ctx, sub.ID, "0xref1")
		if err != nil {
			t.Fatalf("SettleClaim() error = %v", err)
		}
		if remaining != 3_000_000 {
			t.Errorf("remaining balance = %d, want 3000000", remaining)
		}

		got, err := store.GetClaimable(ctx, sub.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Claimed {
			t.Error("claimable not marked claimed")
		}
		if got.ClaimRef != "0xref1" {
			t.Errorf("ClaimRef = %v, want 0xref1", got.ClaimRef)
		}
		if got.ClaimedAt == "" {
			t.Error("ClaimedAt not set")
		}
	})

	t.Run("SecondSettleRejected", func(t *testing.T) {
		_, err := store.SettleClaim(ctx, sub.ID, "0xref2")
		if !errors.Is(err, ErrAlreadyClaimed) {
			t.Errorf("second SettleClaim() error = %v, want ErrAlreadyClaimed", err)
		}
		// Balance unchanged
		balance, _ := store.BountyBalance(ctx, "pool-1")
		if balance != 3_000_000 {
			t.Errorf("balance after rejected settle = %d, want 3000000", balance)
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		sub2 := &Submission{
			Submitter:   "0x2222222222222222222222222222222222222222",
			ContentHash: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			URI:         "ipfs://QmSecond",
			MIMEType:    "image/png",
		}
		if err := store.CreateSubmission(ctx, sub2); err != nil {
			t.Fatal(err)
		}
		big := &Claimable{SubmissionID: sub2.ID, BountyID: "pool-1", Recipient: sub2.Submitter, Amount: 5_000_000}
		if err := store.CreateClaimable(ctx, big); err != nil {
			t.Fatal(err)
		}

		_, err := store.SettleClaim(ctx, sub2.ID, "0xref3")
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Errorf("SettleClaim() error = %v, want ErrInsufficientBalance", err)
		}

		// Still unclaimed; a later deposit makes it claimable
		got, _ := store.GetClaimable(ctx, sub2.ID)
		if got.Claimed {
			t.Error("claimable marked claimed despite insufficient balance")
		}
		if _, err := store.AddDeposit(ctx, &Deposit{BountyID: "pool-1", Amount: 2_000_000}); err != nil {
			t.Fatal(err)
		}
		remaining, err := store.SettleClaim(ctx, sub2.ID, "0xref3")
		if err != nil {
			t.Fatalf("SettleClaim() after top-up error = %v", err)
		}
		if remaining != 0 {
			t.Errorf("remaining = %d, want 0", remaining)
		}
	})

	t.Run("SettleUnknownSubmission", func(t *testing.T) {
		_, err := store.SettleClaim(ctx, 999, "0xref")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("SettleClaim(999) error = %v, want ErrNotFound", err)
		}
	})
}

func TestAPIKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateAndValidateAPIKey", func(t *testing.T) {
		key, err := store.CreateAPIKey(ctx, "test-key")
		if err != nil {
			t.Fatalf("CreateAPIKey() error = %v", err)
		}
		if key == "" {
			t.Fatal("CreateAPIKey() returned empty key")
		}

		apiKey, err := store.ValidateAPIKey(ctx, key)
		if err != nil {
			t.Fatalf("ValidateAPIKey() error = %v", err)
		}
		if apiKey.Name != "test-key" {
			t.Errorf("ValidateAPIKey().Name = %v, want test-key", apiKey.Name)
		}
	})

	t.Run("InvalidAPIKey", func(t *testing.T) {
		_, err := store.ValidateAPIKey(ctx, "invalid-key")
		if err == nil {
			t.Error("ValidateAPIKey() should return error for invalid key")
		}
	})

	t.Run("RevokedKeyRejected", func(t *testing.T) {
		key, err := store.CreateAPIKey(ctx, "doomed")
		if err != nil {
			t.Fatal(err)
		}
		ak, err := store.ValidateAPIKey(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.RevokeAPIKey(ctx, ak.ID); err != nil {
			t.Fatalf("RevokeAPIKey() error = %v", err)
		}
		if _, err := store.ValidateAPIKey(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("ValidateAPIKey() after revoke error = %v, want ErrNotFound", err)
		}
	})
}
