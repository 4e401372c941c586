package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/client"
	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

// envKeyringPass unlocks the file keyring without a prompt.
const envKeyringPass = "TOKENDESK_KEYRING_PASSPHRASE"

// desk is one connected session for the duration of a command.
type desk struct {
	mgr        *wallet.Manager
	provider   *wallet.Provider
	sess       *session.Session
	cli        *client.Client
	token      common.Address
	descriptor abi.ABI
}

func (d *desk) Close() {
	d.cli.Close()
	d.sess.Close()
}

func newWalletManager() *wallet.Manager {
	store := wallet.NewJSONStore(cfg.WalletsPath())
	keys := wallet.OpenKeystore(cfg.KeyringDir(), keyringPassphrase)
	return wallet.NewManager(wallet.WithStore(store), wallet.WithKeystore(keys))
}

func keyringPassphrase(prompt string) (string, error) {
	if v := os.Getenv(envKeyringPass); v != "" {
		return v, nil
	}
	return ui.PromptSecret(prompt)
}

// commandContext bounds a command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cmdTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cmdTimeout)
}

// openDesk discovers the wallet provider, connects a session and binds the
// configured token. The caller must Close it.
func openDesk(ctx context.Context) (*desk, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	descriptor, err := contract.LoadDescriptor(cfg.ABI)
	if err != nil {
		return nil, err
	}

	mgr := newWalletManager()
	if cfg.DefaultWallet != "" {
		if w := mgr.Default(); w == nil || w.Name != cfg.DefaultWallet {
			if err := mgr.SetDefault(cfg.DefaultWallet); err != nil {
				logger.Warn("configured default wallet not usable", "wallet", cfg.DefaultWallet, "err", err)
			}
		}
	}

	opts := []wallet.ProviderOption{wallet.WithLogger(logger)}
	if cfg.ConfirmTx && !assumeYes {
		opts = append(opts, wallet.WithApprover(confirmTx(descriptor)))
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	p, err := session.Discover(dialCtx, wallet.Discoverer(cfg.RPCURL, mgr, opts...))
	if err != nil {
		return nil, err
	}

	sess := session.New(p, logger)
	cli := client.New(sess, client.Options{
		Address:      token,
		Descriptor:   descriptor,
		PollInterval: cfg.ReceiptPoll(),
		Logger:       logger,
	})
	if err := cli.Start(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	if want := cfg.ChainID; want != 0 {
		if got := sess.ChainID(); got != nil && got.Int64() != want {
			cli.Close()
			sess.Close()
			return nil, fmt.Errorf("node is on chain %s, config expects %d", got, want)
		}
	}

	wp, _ := p.(*wallet.Provider)
	return &desk{mgr: mgr, provider: wp, sess: sess, cli: cli, token: token, descriptor: descriptor}, nil
}

// confirmTx shows the decoded transaction and asks before it is signed.
func confirmTx(descriptor abi.ABI) wallet.Approver {
	return func(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error) {
		fmt.Println(ui.KeyValueBlock("Sign transaction", describeTx(descriptor, from, tx)))
		return ui.Confirm("Sign and send?"), nil
	}
}

func describeTx(descriptor abi.ABI, from common.Address, tx *types.Transaction) [][2]string {
	pairs := [][2]string{{"From", ui.Addr(from.Hex())}}
	if tx.To() != nil {
		pairs = append(pairs, [2]string{"To", ui.Addr(tx.To().Hex())})
	}
	pairs = append(pairs, decodeCall(descriptor, tx.Data())...)
	pairs = append(pairs,
		[2]string{"Nonce", fmt.Sprint(tx.Nonce())},
		[2]string{"Gas limit", fmt.Sprint(tx.Gas())},
		[2]string{"Max fee", units.ToDecimalString(tx.GasFeeCap(), 9) + " gwei"},
		[2]string{"Priority fee", units.ToDecimalString(tx.GasTipCap(), 9) + " gwei"},
	)
	return pairs
}

// decodeCall names the method and its arguments for calldata, or shows the
// raw selector when descriptor does not know it.
func decodeCall(descriptor abi.ABI, data []byte) [][2]string {
	if len(data) < 4 {
		return [][2]string{{"Method", ui.Meta("(none)")}}
	}
	method, err := descriptor.MethodById(data[:4])
	if err != nil {
		return [][2]string{{"Selector", fmt.Sprintf("0x%x", data[:4])}, {"Method", ui.Meta("unknown")}}
	}
	pairs := [][2]string{{"Method", ui.Val(method.Sig)}}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return append(pairs, [2]string{"Args", ui.Err(err.Error())})
	}
	for i, in := range method.Inputs {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		pairs = append(pairs, [2]string{name, formatArg(values[i])})
	}
	return pairs
}

func formatArg(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// recipient resolves "me" to the active account.
func (d *desk) recipient(to string) (string, error) {
	if !strings.EqualFold(to, "me") {
		return to, nil
	}
	h, err := d.cli.Handle()
	if err != nil {
		return "", err
	}
	return h.Account().Hex(), nil
}

// printResult reports a confirmed operation and the state it left behind.
func printResult(res *dispatch.Result) {
	title := res.Op.Kind.String() + " confirmed"
	pairs := [][2]string{{"Account", ui.Addr(res.Op.Account.Hex())}}
	if res.Op.To != (common.Address{}) {
		pairs = append(pairs, [2]string{"To", ui.Addr(res.Op.To.Hex())})
	}
	if res.Op.Amount != "" {
		pairs = append(pairs, [2]string{"Amount", ui.Val(units.Normalize(res.Op.Amount))})
	}
	if res.Op.Raw != nil {
		pairs = append(pairs, [2]string{"Base units", res.Op.Raw.String()})
	}
	if res.Receipt != nil {
		pairs = append(pairs,
			[2]string{"Tx", ui.Addr(res.Receipt.TxHash.Hex())},
			[2]string{"Block", fmt.Sprint(res.Receipt.BlockNumber)},
			[2]string{"Gas used", fmt.Sprint(res.Receipt.GasUsed)},
		)
	}
	if res.RefreshErr == nil && !res.State.IsZero() {
		pairs = append(pairs,
			[2]string{"Total supply", ui.Val(res.State.SupplyString())},
			[2]string{"Balance", ui.Val(res.State.BalanceString())},
		)
	}
	fmt.Println(ui.Success(title))
	fmt.Println(ui.KeyValueBlock("", pairs))
	if res.RefreshErr != nil {
		fmt.Println(ui.Warn("token state not refreshed: " + res.RefreshErr.Error()))
	}
}

// withDesk opens a desk bounded by --timeout and runs fn with it.
func withDesk(cmd *cobra.Command, fn func(ctx context.Context, d *desk) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	d, err := openDesk(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}
