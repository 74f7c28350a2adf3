package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimworks/bountyd/pkg/client"
)

func createBalanceCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "balance [bounty-id]",
		Short: "Show a bounty pool's balance",
		Long: `Show the current balance of a bounty pool.

A pool that has never been funded reports a zero balance.

EXAMPLES:
  # Balance of the default pool from bountyline.toml
  bountyctl balance

  # Balance of a specific pool
  bountyctl balance wildlife-photos
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bounty := ""
			if len(args) == 1 {
				bounty = args[0]
			}
			return runBalance(bounty, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runBalance(bounty string, jsonOutput bool) error {
	if bounty == "" {
		if config := loadProjectConfigSilent(); config != nil {
			bounty = config.Bounty
		}
	}
	if bounty == "" {
		return fmt.Errorf("no bounty pool (pass a bounty ID or set it in bountyline.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	pool, err := c.GetPool(context.Background(), bounty)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pool)
	}

	fmt.Printf("Pool %s\n", pool.BountyID)
	fmt.Printf("  Balance: %s\n", pool.BalanceDecimal)

	return nil
}
