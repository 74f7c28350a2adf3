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

func createVerifyCmd() *cobra.Command {
	var verifier string
	var reject bool
	var reasonCode int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <submission-id>",
		Short: "Record a verification decision",
		Long: `Record the accept/reject decision for a submission.

Each submission is verified exactly once; repeating the command for the
same submission fails with ALREADY_VERIFIED.

EXAMPLES:
  # Accept a submission
  bountyctl verify 42

  # Reject with a reason code
  bountyctl verify 42 --reject --reason-code 3
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid submission ID: %s", args[0])
			}
			return runVerify(id, verifier, !reject, reasonCode, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&verifier, "verifier", "", "verifier address (default from config)")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the submission (default is accept)")
	cmd.Flags().IntVar(&reasonCode, "reason-code", 0, "rejection reason code")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runVerify(submissionID int64, verifier string, accepted bool, reasonCode int, jsonOutput bool) error {
	if verifier == "" {
		if config := loadProjectConfigSilent(); config != nil {
			verifier = config.Verifier
		}
	}
	if verifier == "" {
		return fmt.Errorf("no verifier address (use --verifier or set it in bountyline.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	v, err := c.Verify(context.Background(), client.VerifyRequest{
		SubmissionID: submissionID,
		Verifier:     verifier,
		Accepted:     accepted,
		ReasonCode:   reasonCode,
	})
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	decision := "accepted"
	if !v.Accepted {
		decision = "rejected"
	}
	fmt.Printf("✅ Submission #%d %s\n", v.SubmissionID, decision)
	fmt.Printf("   Verifier: %s\n", v.Verifier)
	if !v.Accepted && v.ReasonCode != 0 {
		fmt.Printf("   Reason:   %d\n", v.ReasonCode)
	}
	if v.Accepted {
		fmt.Println()
		fmt.Printf("Mark claimable:  bountyctl payout mark %d --bounty <pool> --recipient <address> --amount <amount>\n", v.SubmissionID)
	}

	return nil
}
