package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
	"github.com/Mohsinsiddi/tokendesk/internal/ui"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the token state and operations",
	Long: `Show the token snapshot and keep it current. The snapshot is re-read every
--interval; a newer read always replaces an older one still in flight.
Account switches made with "a" rebind the token and refresh immediately.
A changed rpc_url in the config dir moves the session to the new node.

Keyboard controls:
  ↑↓ / j k   navigate the operation log
  r          refresh now
  a          switch to the next signing wallet
  q          quit

Examples:
  tokendesk watch
  tokendesk watch --interval 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchInterval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", watchInterval)
		}
		// The live view runs until quit; --timeout only bounds the connect.
		dialCtx, cancelDial := commandContext(cmd)
		defer cancelDial()
		d, err := openDesk(dialCtx)
		if err != nil {
			return err
		}
		defer d.Close()
		return runWatch(cmd.Context(), d)
	},
}

func runWatch(parent context.Context, d *desk) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	m := ui.NewWatchModel(d.token, chainLabel(d.sess.ChainID()), d.cli.Snapshot())
	m.Refresh = func() tea.Msg {
		st, err := d.cli.Refresh(ctx)
		if err != nil {
			return ui.WatchErrMsg{Err: err}
		}
		return ui.StateMsg(st)
	}
	if d.provider != nil && len(d.mgr.Signing()) > 1 {
		m.Switch = func() tea.Msg {
			if err := d.provider.Use(nextSigner(d)); err != nil {
				return ui.WatchErrMsg{Err: err}
			}
			return nil
		}
	}

	prog := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithContext(ctx))

	states := make(chan tokenstate.TokenState, 16)
	stateSub := d.cli.SubscribeState(states)
	defer stateSub.Unsubscribe()
	transitions := make(chan dispatch.Transition, 16)
	trSub := d.cli.SubscribeTransitions(transitions)
	defer trSub.Unsubscribe()

	// Forward feeds into the program and re-read on every tick.
	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-states:
				prog.Send(ui.StateMsg(st))
			case tr := <-transitions:
				prog.Send(ui.TransitionMsg(tr))
			case err := <-stateSub.Err():
				if err != nil {
					prog.Send(ui.WatchErrMsg{Err: err})
				}
				return
			case <-ticker.C:
				go func() {
					if _, err := d.cli.Refresh(ctx); err != nil && ctx.Err() == nil {
						logger.Debug("watch refresh", "err", err)
					}
				}()
			}
		}
	}()

	if d.provider != nil {
		f := &rpcFollower{
			url:      cfg.RPCURL,
			load:     func() (*config.Config, error) { return config.Load(cfg.Dir()) },
			dial:     dialBackend,
			provider: d.provider,
			sess:     d.sess,
		}
		go f.run(ctx, watchInterval, prog.Send)
	}

	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// nextSigner returns the signing wallet after the active one in name order,
// wrapping.
func nextSigner(d *desk) string {
	var signing []*wallet.Wallet
	for _, w := range d.mgr.List() {
		if w.CanSign() {
			signing = append(signing, w)
		}
	}
	active, _ := d.sess.ActiveAccount()
	for i, w := range signing {
		if w.Account() == active {
			return signing[(i+1)%len(signing)].Name
		}
	}
	return signing[0].Name
}

func chainLabel(id *big.Int) string {
	if id == nil {
		return "?"
	}
	return "chain " + id.String()
}

// backendSwitcher is the provider side of following rpc_url.
// *wallet.Provider implements it.
type backendSwitcher interface {
	SwitchBackend(ctx context.Context, backend wallet.Backend) error
	Disconnect(err error)
}

// reconnector is the session side. *session.Session implements it.
type reconnector interface {
	Connected() bool
	Connect(ctx context.Context) error
	ChainID() *big.Int
}

// rpcFollower moves the provider to the node named by rpc_url when the
// config file changes it, so `config set rpc_url` in another terminal takes
// effect in a running watch. A node that cannot be reached disconnects the
// session; a later successful switch reconnects it.
type rpcFollower struct {
	url      string
	load     func() (*config.Config, error)
	dial     func(ctx context.Context, url string) (wallet.Backend, error)
	provider backendSwitcher
	sess     reconnector
}

func (f *rpcFollower) run(ctx context.Context, every time.Duration, send func(tea.Msg)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			label, err := f.check(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				send(ui.WatchErrMsg{Err: err})
			case label != "":
				send(ui.ChainMsg(label))
			}
		}
	}
}

// check re-reads the config and switches nodes if rpc_url changed or the
// session dropped. It returns the new chain label after a switch.
func (f *rpcFollower) check(ctx context.Context) (string, error) {
	fresh, err := f.load()
	if err != nil {
		return "", err
	}
	if fresh.RPCURL == f.url && f.sess.Connected() {
		return "", nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	backend, err := f.dial(dialCtx, fresh.RPCURL)
	if err == nil {
		err = checkChain(dialCtx, backend, fresh.ChainID)
		if err == nil {
			err = f.provider.SwitchBackend(dialCtx, backend)
		}
		if err != nil {
			closeBackend(backend)
		}
	}
	if err != nil {
		err = fmt.Errorf("switching to %s: %w", fresh.RPCURL, err)
		if f.sess.Connected() {
			f.provider.Disconnect(err)
		}
		return "", err
	}

	logger.Info("rpc switched", "url", fresh.RPCURL)
	f.url = fresh.RPCURL
	if !f.sess.Connected() {
		if err := f.sess.Connect(ctx); err != nil {
			return "", err
		}
	}
	return chainLabel(f.sess.ChainID()), nil
}

func checkChain(ctx context.Context, backend wallet.Backend, want int64) error {
	if want == 0 {
		return nil
	}
	got, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("getting chain id: %w", err)
	}
	if got.Int64() != want {
		return fmt.Errorf("node is on chain %s, config expects %d", got, want)
	}
	return nil
}

func dialBackend(ctx context.Context, url string) (wallet.Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func closeBackend(b wallet.Backend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 4*time.Second, "how often to re-read the token")
}
