package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

var (
	walletKeyStdin bool
	walletAddress  string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallets tokendesk signs with",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a signing wallet (or a watch-only one with --address)",
	Long: `Add a wallet. The private key is read without echo and stored in the OS
keychain; it is never written to the config directory.

Examples:
  tokendesk wallet add deployer
  echo $KEY | tokendesk wallet add ci --key-stdin
  tokendesk wallet add treasury --address 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()

		if walletAddress != "" {
			if !common.IsHexAddress(walletAddress) {
				return fmt.Errorf("%q is not an address", walletAddress)
			}
			if err := mgr.Add(name, &wallet.Wallet{
				Name:    name,
				Address: common.HexToAddress(walletAddress).Hex(),
				Type:    wallet.TypeWatchOnly,
			}); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(walletAddress))))
			return nil
		}

		key, err := readKey(cmd)
		if err != nil {
			return err
		}
		w, err := mgr.AddWithKey(name, key)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		if !w.IsDefault {
			fmt.Println(ui.Hint(fmt.Sprintf("Make it active with: tokendesk wallet use %s", name)))
		}
		return nil
	},
}

// readKey takes the private key from stdin (--key-stdin) or a hidden prompt.
func readKey(cmd *cobra.Command) (string, error) {
	if walletKeyStdin {
		var key string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &key); err != nil {
			return "", fmt.Errorf("reading key from stdin: %w", err)
		}
		return strings.TrimSpace(key), nil
	}
	key, err := ui.PromptSecret("Private key (hex)")
	if errors.Is(err, ui.ErrNotTerminal) {
		return "", fmt.Errorf("%w; pipe the key with --key-stdin", err)
	}
	return key, err
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		wallets := mgr.List()

		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Add one with: tokendesk wallet add deployer"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Active", Width: 8},
		})
		for _, w := range wallets {
			active := ""
			if w.IsDefault {
				active = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, active})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Choose the account transactions are sent from",
	Long:  `Set the active signing wallet. Without a name, pick one interactively.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			picked, err := ui.PickItem("Select the active wallet", walletItems(mgr.List()))
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		w, err := mgr.Get(name)
		if err != nil {
			return fmt.Errorf("%w: %q", err, name)
		}
		if !w.CanSign() {
			return fmt.Errorf("%w: %q", wallet.ErrWatchOnly, name)
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Active wallet set to %q (%s).", name, ui.Addr(w.Address))))
		return nil
	},
}

// walletItems lists wallets for the picker; watch-only ones cannot be chosen.
func walletItems(wallets []*wallet.Wallet) []ui.PickerItem {
	items := make([]ui.PickerItem, 0, len(wallets))
	for _, w := range wallets {
		item := ui.PickerItem{Label: w.Name, SubLabel: ui.TruncateAddr(w.Address), Value: w.Name}
		switch {
		case !w.CanSign():
			item.Tag, item.Disabled = wallet.TypeWatchOnly, true
		case w.IsDefault:
			item.Tag = "active"
		}
		items = append(items, item)
	}
	return items
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !assumeYes && !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		mgr := newWalletManager()
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				fmt.Fprintln(os.Stderr, ui.Warn("config not updated: "+err.Error()))
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().BoolVar(&walletKeyStdin, "key-stdin", false, "read the private key from stdin")
	walletAddCmd.Flags().StringVar(&walletAddress, "address", "", "add a watch-only wallet for this address")
	walletAddCmd.MarkFlagsMutuallyExclusive("key-stdin", "address")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletUseCmd, walletRemoveCmd)
}
