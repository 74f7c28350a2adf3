package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/claimworks/bountyd/pkg/client"
)

func createPayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Payout commands",
	}

	cmd.AddCommand(createPayoutMarkCmd())
	cmd.AddCommand(createPayoutClaimCmd())
	cmd.AddCommand(createPayoutGetCmd())

	return cmd
}

func createPayoutMarkCmd() *cobra.Command {
	var bounty string
	var recipient string
	var amount string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "mark <submission-id>",
		Short: "Mark an accepted submission claimable",
		Long: `Authorize a one-time payout for an accepted submission.

The pool must cover the amount when marking, but nothing is debited
until the payout is claimed; the balance is checked again then.

EXAMPLES:
  bountyctl payout mark 42 --bounty wildlife-photos --recipient 0xabc... --amount 5.00
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			return runPayoutMark(id, bounty, recipient, amount, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&bounty, "bounty", "", "bounty pool ID (default from config)")
	cmd.Flags().StringVar(&recipient, "recipient", "", "payout recipient address (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "payout amount (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func createPayoutClaimCmd() *cobra.Command {
	var requester string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "claim <submission-id>",
		Short: "Claim a marked payout",
		Long: `Claim a marked payout as its recipient.

Each payout settles exactly once. Claims fail when the pool cannot
cover the amount; fund the pool and retry.

EXAMPLES:
  bountyctl payout claim 42 --requester 0xabc...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			return runPayoutClaim(id, requester, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "claiming address, must match the recipient (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("requester")

	return cmd
}

func createPayoutGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <submission-id>",
		Short: "Show payout state for a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}
			return runPayoutGet(id, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runPayoutMark(submissionID int64, bounty, recipient, amount string, jsonOutput bool) error {
	if bounty == "" {
		if config := loadProjectConfigSilent(); config != nil {
			bounty = config.Bounty
		}
	}
	if bounty == "" {
		return fmt.Errorf("no bounty pool (use --bounty or set it in bountyline.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	claimable, err := c.MarkClaimable(context.Background(), submissionID, client.MarkRequest{
		BountyID:  bounty,
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("failed to mark payout: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(claimable)
	}

	fmt.Printf("✅ Payout marked for submission #%d\n", claimable.SubmissionID)
	fmt.Printf("   Pool:      %s\n", claimable.BountyID)
	fmt.Printf("   Recipient: %s\n", claimable.Recipient)
	fmt.Printf("   Amount:    %s\n", claimable.AmountDecimal)
	fmt.Println()
	fmt.Printf("Claim:  bountyctl payout claim %d --requester %s\n", claimable.SubmissionID, claimable.Recipient)

	return nil
}

func runPayoutClaim(submissionID int64, requester string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	result, err := c.Claim(context.Background(), submissionID, requester)
	if err != nil {
		return fmt.Errorf("failed to claim payout: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("✅ Payout claimed for submission #%d\n", result.SubmissionID)
	fmt.Printf("   Amount:    %s\n", result.AmountDecimal)
	fmt.Printf("   Claim ref: %s\n", result.ClaimRef)

	return nil
}

func runPayoutGet(submissionID int64, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	claimable, err := c.GetClaimable(context.Background(), submissionID)
	if err != nil {
		return fmt.Errorf("failed to get payout: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(claimable)
	}

	state := "claimable"
	if claimable.Claimed {
		state = "claimed"
	}
	fmt.Printf("Payout for submission #%d (%s)\n", claimable.SubmissionID, state)
	fmt.Printf("  Pool:      %s\n", claimable.BountyID)
	fmt.Printf("  Recipient: %s\n", claimable.Recipient)
	fmt.Printf("  Amount:    %s\n", claimable.AmountDecimal)
	if claimable.ClaimRef != "" {
		fmt.Printf("  Claim ref: %s\n", claimable.ClaimRef)
	}
	if claimable.ClaimedAt != "" {
		fmt.Printf("  Claimed:   %s\n", claimable.ClaimedAt)
	}

	return nil
}

func parseSubmissionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid submission ID: %s", arg)
	}
	return id, nil
}
