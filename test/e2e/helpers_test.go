//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claimworks/bountyd/internal/config"
	"github.com/claimworks/bountyd/internal/events"
	"github.com/claimworks/bountyd/internal/server"
	"github.com/claimworks/bountyd/internal/settlement"
	"github.com/claimworks/bountyd/internal/storage"
	"github.com/claimworks/bountyd/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("bountyd"),
		postgres.WithUsername("bountyd"),
		postgres.WithPassword("bountyd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the bountyd server in-process
func startServerE(connString string) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Auth:       config.AuthConfig{Type: "api-key"},
		Settlement: config.SettlementConfig{Type: "local", TimeoutSeconds: 10},
		Events:     config.EventsConfig{Enabled: false},
		Logging:    config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit:  config.RateLimitConfig{Enabled: false},
		Security:   config.SecurityConfig{FilterEnabled: false, MaxBodySizeMB: 1},
		Proxy:      config.ProxyConfig{TrustProxy: false},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.New(cfg, store, settlement.NewLocal(logger), events.Nop{}, logger)

	testServer := httptest.NewServer(srv.Handler())

	return testServer, store, nil
}

// newClient creates a new API client for the test server
func newClient(testServer *httptest.Server, apiKey string) *client.Client {
	return client.New(testServer.URL, apiKey)
}

// createTestAPIKey creates a test API key using the store directly
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

const (
	submitterAddr = "0x1111111111111111111111111111111111111111"
	verifierAddr  = "0x2222222222222222222222222222222222222222"
	recipientAddr = "0x3333333333333333333333333333333333333333"
)

// contentHash returns a unique-looking 32-byte hash for test fixtures
func contentHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

// registerAccepted registers a submission and records an accept decision
func registerAccepted(t *testing.T, c *client.Client, n int) int64 {
	t.Helper()

	sub, err := c.Register(context.Background(), client.RegisterRequest{
		Submitter:   submitterAddr,
		ContentHash: contentHash(n),
		URI:         fmt.Sprintf("ipfs://QmTest%d", n),
		MIMEType:    "image/png",
	})
	require.NoError(t, err, "Failed to register submission")

	_, err = c.Verify(context.Background(), client.VerifyRequest{
		SubmissionID: sub.ID,
		Verifier:     verifierAddr,
		Accepted:     true,
	})
	require.NoError(t, err, "Failed to record verification")

	return sub.ID
}

// assertHTTPError asserts that an error is an APIError with the expected code
func assertHTTPError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err, "Expected an error")
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "Error should be an APIError")
	require.Equal(t, expectedCode, apiErr.Code, "Error code mismatch")
}
