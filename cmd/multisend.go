package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
)

var (
	multisendTo      []string
	multisendAmounts []string
)

var multisendCmd = &cobra.Command{
	Use:   "multisend --to <a,b,...> --amounts <x,y,...>",
	Short: "Send to several recipients, one transaction each",
	Long: `Transfer amounts[i] to to[i] in list order, one transaction per pair.
Both lists must be the same length. The first failed pair stops the batch;
pairs before it stay sent.

Examples:
  tokendesk multisend --to 0xAAA...,0xBBB... --amounts 1,2.5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDesk(cmd, func(ctx context.Context, d *desk) error {
			results, err := d.cli.MultiSend(ctx, multisendTo, multisendAmounts)
			printBatch(os.Stdout, multisendTo, multisendAmounts, results, err)
			return err
		})
	},
}

// printBatch renders one row per pair: sent, failed or skipped.
func printBatch(w io.Writer, to, amounts []string, results []*dispatch.Result, err error) {
	var multi *dispatch.MultiSendError
	if err != nil && !errors.As(err, &multi) {
		return
	}
	t := ui.NewTable([]ui.Column{
		{Title: "#", Width: 3},
		{Title: "Recipient", Width: 42},
		{Title: "Amount", Width: 18, Right: true},
		{Title: "Status", Width: 10},
		{Title: "Tx", Width: 14},
	})
	for i := range to {
		row := ui.Row{fmt.Sprint(i), to[i], amounts[i], "skipped", ""}
		if i < len(results) {
			row[3] = "sent"
			if r := results[i].Receipt; r != nil {
				row[4] = ui.TruncateAddr(r.TxHash.Hex())
			}
		} else if multi != nil && i == multi.Index {
			row[3] = "failed"
		}
		t.AddRow(row)
	}
	fmt.Fprintln(w, t.Render())
	if err == nil {
		fmt.Fprintln(w, ui.Success(fmt.Sprintf("%d transfer(s) confirmed", len(results))))
		if len(results) > 0 && results[0].RefreshErr == nil {
			fmt.Fprintln(w, ui.Meta("balance now " + results[0].State.BalanceString()))
		}
	}
}

func init() {
	multisendCmd.Flags().StringSliceVar(&multisendTo, "to", nil, "comma-separated recipient addresses")
	multisendCmd.Flags().StringSliceVar(&multisendAmounts, "amounts", nil, "comma-separated whole-token amounts")
	multisendCmd.MarkFlagRequired("to")      //nolint:errcheck
	multisendCmd.MarkFlagRequired("amounts") //nolint:errcheck
}
