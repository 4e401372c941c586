package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
)

var mintCmd = &cobra.Command{
	Use:   "mint <to|me> <amount>",
	Short: "Mint new tokens (owner only)",
	Long: `Mint amount whole tokens to an address. "me" mints to the active account.

Examples:
  tokendesk mint me 1000
  tokendesk mint 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 2.5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			to, err := d.recipient(args[0])
			if err != nil {
				return nil, err
			}
			return d.cli.Mint(ctx, to, args[1])
		})
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn <amount>",
	Short: "Burn tokens from the active account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			return d.cli.Burn(ctx, args[0])
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause all transfers (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			return d.cli.Pause(ctx)
		})
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume transfers (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			return d.cli.Unpause(ctx)
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Transfer tokens from the active account",
	Long: `Transfer amount whole tokens to an address. The amount is converted with
the token's decimals read at submit time, so "2" on an 18-decimal token sends
2000000000000000000 base units.

Examples:
  tokendesk transfer 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 2
  tokendesk transfer 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 0.000001`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			return d.cli.Transfer(ctx, args[0], args[1])
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <spender> <amount>",
	Short: "Let a spender move tokens on your behalf",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, func(ctx context.Context, d *desk) (*dispatch.Result, error) {
			return d.cli.Approve(ctx, args[0], args[1])
		})
	},
}

// runOp opens a desk, runs one dispatcher operation and prints its result.
func runOp(cmd *cobra.Command, op func(ctx context.Context, d *desk) (*dispatch.Result, error)) error {
	return withDesk(cmd, func(ctx context.Context, d *desk) error {
		// The approval prompt and the spinner would share the terminal.
		var spin *ui.Spinner
		if !cfg.ConfirmTx || assumeYes {
			spin = ui.NewSpinner("waiting for confirmation…")
			spin.Start()
		}
		res, err := op(ctx, d)
		if spin != nil {
			spin.Stop()
		}
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	})
}
