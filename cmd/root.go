package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/logx"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokendesk/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir     string
	cfg        *config.Config
	logger     *log.Logger
	verbose    bool
	assumeYes  bool
	cmdTimeout time.Duration
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "tokendesk",
	Short: "Operate a mintable, burnable, pausable token from the terminal",
	Long: ui.Banner(Version) + `

tokendesk connects your signing wallet to one token contract and lets you
mint, burn, pause, transfer, approve and multi-send, with every amount given
in whole tokens and converted with the contract's own decimals.

The token address, RPC endpoint and ABI come from ~/.tokendesk/config.json
(see: tokendesk config show). Keys live in the OS keychain.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logx.Stderr(level)
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, ui.Hint(hint))
		}
		stop()
		os.Exit(1)
	}
}

// errorHint suggests the next step for the errors a user can act on.
func errorHint(err error) string {
	var multi *dispatch.MultiSendError
	switch {
	case errors.As(err, &multi):
		if multi.Index == 0 {
			return "no pairs were sent; fix the first pair and run the batch again"
		}
		return fmt.Sprintf("pairs 0..%d were sent; resume from index %d", multi.Index-1, multi.Index)
	case errors.Is(err, session.ErrNoProviderDetected):
		return "check rpc_url (tokendesk config show) and add a signing wallet: tokendesk wallet add <name>"
	case errors.Is(err, session.ErrUserRejected):
		return "the request was declined; nothing was sent"
	case errors.Is(err, contract.ErrNoSession):
		return "no active account; select one with: tokendesk wallet use <name>"
	case errors.Is(err, dispatch.ErrValidation), errors.Is(err, units.ErrInvalidAmount):
		return "amounts are whole-token decimals such as 1.5; addresses are 0x followed by 40 hex digits"
	case errors.Is(err, tokenstate.ErrReadFailure):
		return "the token could not be read; check token_address and abi"
	case errors.Is(err, wallet.ErrWatchOnly):
		return "watch-only wallets cannot sign; add one with a key: tokendesk wallet add <name>"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise the limit with --timeout"
	}
	return ""
}

func init() {
	logger = logx.Discard()
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.tokendesk)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before signing or removing")
	rootCmd.PersistentFlags().DurationVar(&cmdTimeout, "timeout", config.TxConfirmTimeout, "give up on a command after this long")

	rootCmd.AddCommand(
		infoCmd,
		mintCmd,
		burnCmd,
		pauseCmd,
		unpauseCmd,
		transferCmd,
		approveCmd,
		allowanceCmd,
		multisendCmd,
		watchCmd,
		walletCmd,
		configCmd,
		convertCmd,
		decodeCmd,
	)
}
