package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the token's name, decimals, supply and your balance",
	Long: `Read the token state at a single block: name, decimals, total supply and
the active account's balance, plus owner and paused status when the ABI has them.

Examples:
  tokendesk info
  tokendesk info --config ./staging`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDesk(cmd, func(ctx context.Context, d *desk) error {
			st, err := d.cli.Refresh(ctx)
			if err != nil {
				return err
			}
			pairs := [][2]string{
				{"Token", ui.Addr(d.token.Hex())},
				{"Name", ui.TokenName(st.Name)},
				{"Decimals", fmt.Sprint(st.Decimals)},
				{"Total supply", ui.Val(st.SupplyString())},
				{"Account", ui.Addr(st.Account.Hex())},
				{"Balance", ui.Val(st.BalanceString())},
				{"Block", fmt.Sprintf("#%d", st.Block)},
			}
			if id := d.sess.ChainID(); id != nil {
				pairs = append(pairs, [2]string{"Chain", id.String()})
			}
			h, err := d.cli.Handle()
			if err != nil {
				return err
			}
			extra, err := extraPairs(ctx, h, new(big.Int).SetUint64(st.Block))
			if err != nil {
				return err
			}
			pairs = append(pairs, extra...)
			fmt.Println(ui.KeyValueBlock("Token", pairs))
			return nil
		})
	},
}

// tokenExtras is what info reads beyond the snapshot. *contract.Handle
// implements it.
type tokenExtras interface {
	HasMethod(name string) bool
	Owner(ctx context.Context, block *big.Int) (common.Address, error)
	Paused(ctx context.Context, block *big.Int) (bool, error)
}

// extraPairs reads owner and paused status at block for ABIs that declare them.
func extraPairs(ctx context.Context, h tokenExtras, block *big.Int) ([][2]string, error) {
	var pairs [][2]string
	if h.HasMethod("owner") {
		owner, err := h.Owner(ctx, block)
		if err != nil {
			return nil, fmt.Errorf("reading owner: %w", err)
		}
		pairs = append(pairs, [2]string{"Owner", ui.Addr(owner.Hex())})
	}
	if h.HasMethod("paused") {
		paused, err := h.Paused(ctx, block)
		if err != nil {
			return nil, fmt.Errorf("reading paused: %w", err)
		}
		status := ui.StyleSuccess.Render("active")
		if paused {
			status = ui.StyleWarning.Render("paused")
		}
		pairs = append(pairs, [2]string{"Status", status})
	}
	return pairs, nil
}
