package settlement

import (
	"context"
	"os"
	"strings"
	"testing"

	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLocalRefs(t *testing.T) {
	l := NewLocal(testLogger())
	ctx := context.Background()

	ref, err := l.RegisterSubmission(ctx, "0x1234567890abcdef1234567890abcdef12345678", "0xabc")
	if err != nil {
		t.Fatalf("RegisterSubmission() error = %v", err)
	}
	if !strings.HasPrefix(ref, "0x") || len(ref) != 66 {
		t.Errorf("ref = %v, want 0x-prefixed 64 hex chars", ref)
	}

	// Identical inputs still get distinct refs
	ref2, err := l.RegisterSubmission(ctx, "0x1234567890abcdef1234567890abcdef12345678", "0xabc")
	if err != nil {
		t.Fatal(err)
	}
	if ref == ref2 {
		t.Error("two operations produced the same ref")
	}
}

func TestLocalHonorsContext(t *testing.T) {
	l := NewLocal(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.ReleasePayout(ctx, 1, "0x1234567890abcdef1234567890abcdef12345678", 1_000_000); err == nil {
		t.Error("ReleasePayout() with cancelled context should fail")
	}
	if err := l.Status(ctx); err == nil {
		t.Error("Status() with cancelled context should fail")
	}
}
