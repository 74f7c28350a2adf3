package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimworks/bountyd/internal/events"
	"github.com/claimworks/bountyd/internal/storage"
)

func TestConcurrentClaimsSettleOnce(t *testing.T) {
	store := fixture(10_000_000)
	ledger := &fakeLedger{}
	svc := NewService(store, ledger, events.Nop{}, time.Second)

	_, err := svc.MarkClaimable(context.Background(), markReq())
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), ClaimRequest{SubmissionID: 1, Requester: recipient})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyClaimed):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, 1, ledger.claimCalls)
	assert.Equal(t, int64(3_000_000), store.balances["pool-a"])
}

func TestConcurrentClaimsCannotOverdrawPool(t *testing.T) {
	store := newMockStore()
	ledger := &fakeLedger{}
	svc := NewService(store, ledger, events.Nop{}, time.Second)

	// Ten payouts of 3 against a pool holding 10: at most three can settle
	store.balances["shared-pool"] = 10_000_000
	const n = 10
	for i := int64(1); i <= n; i++ {
		store.submissions[i] = &storage.Submission{ID: i, Submitter: recipient}
		store.verifications[i] = &storage.Verification{SubmissionID: i, Accepted: true}
		_, err := svc.MarkClaimable(context.Background(), MarkRequest{
			SubmissionID: i,
			BountyID:     "shared-pool",
			Recipient:    recipient,
			Amount:       "3",
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), ClaimRequest{SubmissionID: id, Requester: recipient})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientBalance):
			insufficient++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, n-3, insufficient)
	assert.Equal(t, int64(1_000_000), store.balances["shared-pool"])
	// Settlement was only invoked for claims that could be covered
	assert.Equal(t, 3, ledger.claimCalls)
}

func TestConcurrentMarksCreateOne(t *testing.T) {
	store := fixture(10_000_000)
	svc := NewService(store, &fakeLedger{}, events.Nop{}, time.Second)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.MarkClaimable(context.Background(), markReq())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyMarked) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	active := make(map[string]int)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					km.Lock(key)
					mu.Lock()
					active[key]++
					if active[key] != 1 {
						t.Errorf("key %s held by %d goroutines", key, active[key])
					}
					mu.Unlock()

					mu.Lock()
					active[key]--
					mu.Unlock()
					km.Unlock(key)
				}
			}(key)
		}
	}
	wg.Wait()

	// All entries released
	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.entries) != 0 {
		t.Errorf("%d lock entries leaked", len(km.entries))
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent key blocked")
	}
}
