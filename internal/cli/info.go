package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimworks/bountyd/pkg/client"
)

func createInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info [submission-id]",
		Short: "Show submission or server details",
		Long: `Display the full workflow state of a submission, or server
details when no submission ID is given.

EXAMPLES:
  # Show server version and compatibility
  bountyctl info

  # Show a submission and its verification/payout state
  bountyctl info 42

  # Output as JSON
  bountyctl info 42 --json
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runServerInfo(jsonOutput)
			}
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			return runSubmissionInfo(id, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runServerInfo(jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	version, err := c.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}

	compatible := true
	if err := c.CheckCompatibility(ctx); err != nil {
		compatible = false
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"server":     getServer(),
			"version":    version,
			"compatible": compatible,
		})
	}

	fmt.Printf("Server:  %s\n", getServer())
	fmt.Printf("Version: %s\n", version)
	if compatible {
		fmt.Println("Status:  compatible")
	} else {
		fmt.Printf("Status:  incompatible (client requires %s or newer)\n", client.MinServerVersion)
	}

	return nil
}

func runSubmissionInfo(submissionID int64, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	sub, err := c.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	// Verification and payout are optional stages; NOT_FOUND just means
	// the submission has not reached them yet.
	verification, err := c.GetVerification(ctx, submissionID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to get verification: %w", err)
	}

	claimable, err := c.GetClaimable(ctx, submissionID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to get payout: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"submission":   sub,
			"verification": verification,
			"payout":       claimable,
		})
	}

	fmt.Printf("Submission #%d\n", sub.ID)
	fmt.Printf("  Submitter: %s\n", sub.Submitter)
	fmt.Printf("  Hash:      %s\n", sub.ContentHash)
	fmt.Printf("  URI:       %s\n", sub.URI)
	fmt.Printf("  MIME:      %s\n", sub.MIMEType)
	fmt.Printf("  Created:   %s\n", sub.CreatedAt)
	fmt.Println()

	if verification == nil {
		fmt.Println("Verification: pending")
	} else if verification.Accepted {
		fmt.Printf("Verification: accepted by %s\n", verification.Verifier)
	} else {
		fmt.Printf("Verification: rejected by %s (reason %d)\n", verification.Verifier, verification.ReasonCode)
	}

	if claimable == nil {
		fmt.Println("Payout:       none")
	} else if claimable.Claimed {
		fmt.Printf("Payout:       %s claimed by %s\n", claimable.AmountDecimal, claimable.Recipient)
	} else {
		fmt.Printf("Payout:       %s claimable by %s from %s\n", claimable.AmountDecimal, claimable.Recipient, claimable.BountyID)
	}

	return nil
}

func isNotFound(err error) bool {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "NOT_FOUND"
	}
	return false
}
