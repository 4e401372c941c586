package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "Decode token calldata using the configured ABI",
	Long: `Decode raw calldata (hex) against the configured ABI. No RPC call needed.

Examples:
  tokendesk decode 0xa9059cbb00000000000000000000000070997970c51812dc3a010c7d01b50e0d17dc79c80000000000000000000000000000000000000000000000001bc16d674ec80000
  tokendesk decode 0x8456cb59`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseCalldata(args[0])
		if err != nil {
			return err
		}
		descriptor, err := contract.LoadDescriptor(cfg.ABI)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Decoded Calldata", decodeCall(descriptor, data)))
		return nil
	},
}

func parseCalldata(s string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if clean == "" {
		return nil, fmt.Errorf("empty calldata; provide a hex string starting with 0x")
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("calldata is not hex: %w", err)
	}
	return data, nil
}
