package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
)

var allowanceCmd = &cobra.Command{
	Use:   "allowance <owner|me> <spender>",
	Short: "Show how much a spender may move for an owner",
	Long: `Query how many tokens an owner has approved a spender to use.

Examples:
  tokendesk allowance me 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
  tokendesk allowance 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDesk(cmd, func(ctx context.Context, d *desk) error {
			owner, err := d.recipient(args[0])
			if err != nil {
				return err
			}
			raw, err := d.cli.Allowance(ctx, owner, args[1])
			if err != nil {
				return err
			}
			st := d.cli.Snapshot()
			fmt.Println(ui.KeyValueBlock("Allowance", [][2]string{
				{"Token", ui.TokenName(st.Name)},
				{"Owner", ui.Addr(owner)},
				{"Spender", ui.Addr(args[1])},
				{"Allowance", ui.Val(units.ToDecimalString(raw, int(st.Decimals)))},
				{"Base units", raw.String()},
			}))
			return nil
		})
	},
}
