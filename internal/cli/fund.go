package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimworks/bountyd/pkg/client"
)

func createFundCmd() *cobra.Command {
	var bounty string
	var amount string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Fund a bounty pool",
		Long: `Deposit funds into a bounty pool.

Amounts are decimal strings with at most six fractional digits. The
pool is created on first deposit.

EXAMPLES:
  # Fund the default pool from bountyline.toml
  bountyctl fund --amount 25.00

  # Fund a specific pool
  bountyctl fund --bounty wildlife-photos --amount 25.00
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(bounty, amount, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&bounty, "bounty", "", "bounty pool ID (default from config)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to deposit (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runFund(bounty, amount string, jsonOutput bool) error {
	if bounty == "" {
		if config := loadProjectConfigSilent(); config != nil {
			bounty = config.Bounty
		}
	}
	if bounty == "" {
		return fmt.Errorf("no bounty pool (use --bounty or set it in bountyline.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	result, err := c.Deposit(context.Background(), bounty, amount)
	if err != nil {
		return fmt.Errorf("failed to fund pool: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("✅ Deposited %s into %s\n", result.AmountDecimal, result.BountyID)
	fmt.Printf("   Balance: %s\n", result.BalanceDecimal)
	if result.SettlementRef != "" {
		fmt.Printf("   Ref:     %s\n", result.SettlementRef)
	}

	return nil
}
