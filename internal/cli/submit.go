package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimworks/bountyd/pkg/client"
)

func createSubmitCmd() *cobra.Command {
	var submitter string
	var contentHash string
	var uri string
	var mimeType string
	var requestID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register a content submission",
		Long: `Register a piece of content for a bounty.

The content itself stays wherever it is hosted; only the hash, the URI,
and the MIME type are registered. Use --request-id to make the call
idempotent: retrying with the same ID returns the original submission.

EXAMPLES:
  # Register a submission
  bountyctl submit --content-hash 0xabc... --uri ipfs://Qm... --mime-type image/png

  # Idempotent registration (safe to retry)
  bountyctl submit --content-hash 0xabc... --uri ipfs://Qm... --mime-type image/png --request-id upload-42
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(submitter, contentHash, uri, mimeType, requestID, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&submitter, "submitter", "", "submitter address (default from config)")
	cmd.Flags().StringVar(&contentHash, "content-hash", "", "content hash, 0x-prefixed (required)")
	cmd.Flags().StringVar(&uri, "uri", "", "content URI (required)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "application/octet-stream", "content MIME type")
	cmd.Flags().StringVar(&requestID, "request-id", "", "idempotency key")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("content-hash")
	_ = cmd.MarkFlagRequired("uri")

	return cmd
}

func runSubmit(submitter, contentHash, uri, mimeType, requestID string, jsonOutput bool) error {
	if submitter == "" {
		if config := loadProjectConfigSilent(); config != nil {
			submitter = config.Submitter
		}
	}
	if submitter == "" {
		return fmt.Errorf("no submitter address (use --submitter or set it in bountyline.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	sub, err := c.Register(context.Background(), client.RegisterRequest{
		Submitter:   submitter,
		ContentHash: contentHash,
		URI:         uri,
		MIMEType:    mimeType,
		RequestID:   requestID,
	})
	if err != nil {
		return fmt.Errorf("failed to register submission: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	}

	fmt.Printf("✅ Submission registered: #%d\n", sub.ID)
	fmt.Printf("   Submitter: %s\n", sub.Submitter)
	fmt.Printf("   URI:       %s\n", sub.URI)
	if sub.SettlementRef != "" {
		fmt.Printf("   Ref:       %s\n", sub.SettlementRef)
	}
	fmt.Println()
	fmt.Printf("Check status:  bountyctl info %d\n", sub.ID)

	return nil
}
