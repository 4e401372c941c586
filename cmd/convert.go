package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
)

var (
	convertDecimals int
	convertFromBase bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount>",
	Short: "Convert between whole-token amounts and base units",
	Long: `Convert a whole-token amount to base units, or back with --from-base.
No RPC call is made; pass the token's decimals (default 18).

Examples:
  tokendesk convert 2                        # → 2000000000000000000
  tokendesk convert 1.5 --decimals 6         # → 1500000
  tokendesk convert 1500000 --decimals 6 --from-base
  tokendesk convert 0xde0b6b3a7640000 --from-base`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := convertPairs(args[0], convertDecimals, convertFromBase)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Unit Conversion", pairs))
		return nil
	},
}

func convertPairs(amount string, decimals int, fromBase bool) ([][2]string, error) {
	if fromBase {
		raw, err := parseBaseUnits(amount)
		if err != nil {
			return nil, err
		}
		return [][2]string{
			{"Base units", raw.String()},
			{"Hex", "0x" + raw.Text(16)},
			{"Decimals", fmt.Sprint(decimals)},
			{"Amount", ui.Val(units.ToDecimalString(raw, decimals))},
		}, nil
	}
	raw, err := units.ToBaseUnits(amount, decimals)
	if err != nil {
		return nil, err
	}
	return [][2]string{
		{"Amount", ui.Val(units.Normalize(amount))},
		{"Decimals", fmt.Sprint(decimals)},
		{"Base units", raw.String()},
		{"Hex", "0x" + raw.Text(16)},
	}, nil
}

// parseBaseUnits accepts a non-negative decimal or 0x-prefixed hex integer.
func parseBaseUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if lower := strings.ToLower(s); strings.HasPrefix(lower, "0x") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is not a base-unit integer", units.ErrInvalidAmount, s)
	}
	return n, nil
}

func init() {
	convertCmd.Flags().IntVarP(&convertDecimals, "decimals", "d", 18, "token decimals")
	convertCmd.Flags().BoolVar(&convertFromBase, "from-base", false, "input is in base units")
}
