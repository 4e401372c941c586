// Package client wires a wallet session to the token contract and keeps the
// bound handle and cached state in step with the session.
package client

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/logx"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
)

// Options configures a Client.
type Options struct {
	Address      common.Address
	Descriptor   abi.ABI
	PollInterval time.Duration
	Logger       *log.Logger
}

// Client is the presentation boundary: the current snapshot, operation
// transitions and typed operations against the active account.
type Client struct {
	sess  *session.Session
	cache *tokenstate.Cache
	disp  *dispatch.Dispatcher
	opts  Options
	log   *log.Logger

	mu     sync.RWMutex
	handle *contract.Handle

	ctx     context.Context
	cancel  context.CancelFunc
	sub     event.Subscription
	changes chan session.Change
	wg      sync.WaitGroup
}

// New returns a client over sess. Call Start to connect.
func New(sess *session.Session, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logx.Discard()
	}
	c := &Client{
		sess:  sess,
		cache: tokenstate.New(logger),
		opts:  opts,
		log:   logger.WithPrefix("client"),
	}
	// Post-confirmation refreshes go through Client.Refresh so they read
	// whichever account is active when they start.
	c.disp = dispatch.New(c, logger)
	return c
}

// Start connects the session, binds the contract and publishes the first
// snapshot. Afterwards every session change rebinds and refreshes.
func (c *Client) Start(ctx context.Context) error {
	if err := c.sess.Connect(ctx); err != nil {
		return err
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.changes = make(chan session.Change, 8)
	c.sub = c.sess.Subscribe(c.changes)

	if err := c.rebind(); err != nil {
		return err
	}
	if _, err := c.Refresh(ctx); err != nil {
		c.log.Warn("initial refresh failed", "err", err)
	}

	c.wg.Add(1)
	go c.loop()
	return nil
}

// Close stops following the session. The session itself is left open.
func (c *Client) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.sub.Unsubscribe()
	c.wg.Wait()
	c.cancel = nil
}

// Session returns the underlying session.
func (c *Client) Session() *session.Session { return c.sess }

// Handle returns the handle bound to the current account.
func (c *Client) Handle() (*contract.Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil {
		return nil, contract.ErrNoSession
	}
	return c.handle, nil
}

// Snapshot returns the last published token state.
func (c *Client) Snapshot() tokenstate.TokenState { return c.cache.Snapshot() }

// SubscribeState delivers each published snapshot.
func (c *Client) SubscribeState(ch chan<- tokenstate.TokenState) event.Subscription {
	return c.cache.Subscribe(ch)
}

// SubscribeTransitions delivers each operation state change.
func (c *Client) SubscribeTransitions(ch chan<- dispatch.Transition) event.Subscription {
	return c.disp.Subscribe(ch)
}

// InFlight lists submitted operations awaiting a receipt.
func (c *Client) InFlight() []dispatch.Operation { return c.disp.InFlight() }

// Refresh re-reads token state for the current handle.
func (c *Client) Refresh(ctx context.Context) (tokenstate.TokenState, error) {
	h, err := c.Handle()
	if err != nil {
		return tokenstate.TokenState{}, err
	}
	return c.cache.Refresh(ctx, h)
}

// Mint mints amount to the given recipient.
func (c *Client) Mint(ctx context.Context, to, amount string) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Mint(ctx, h, to, amount)
}

// Burn burns amount of the active account's tokens.
func (c *Client) Burn(ctx context.Context, amount string) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Burn(ctx, h, amount)
}

// Pause pauses the token.
func (c *Client) Pause(ctx context.Context) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Pause(ctx, h)
}

// Unpause unpauses the token.
func (c *Client) Unpause(ctx context.Context) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Unpause(ctx, h)
}

// Transfer sends amount to to.
func (c *Client) Transfer(ctx context.Context, to, amount string) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Transfer(ctx, h, to, amount)
}

// Approve sets spender's allowance.
func (c *Client) Approve(ctx context.Context, spender, amount string) (*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Approve(ctx, h, spender, amount)
}

// MultiSend transfers to each recipient in order.
func (c *Client) MultiSend(ctx context.Context, recipients, amounts []string) ([]*dispatch.Result, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.MultiSend(ctx, h, recipients, amounts)
}

// Allowance reads owner's allowance for spender in base units.
func (c *Client) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	h, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return c.disp.Allowance(ctx, h, owner, spender)
}

func (c *Client) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.sub.Err():
			return
		case ch := <-c.changes:
			c.onChange(ch)
		}
	}
}

func (c *Client) onChange(ch session.Change) {
	c.log.Debug("session change", "kind", ch.Kind, "accounts", len(ch.Accounts), "connected", ch.Connected)
	if !ch.Connected {
		c.mu.Lock()
		c.handle = nil
		c.mu.Unlock()
		c.cache.Reset()
		return
	}
	if err := c.rebind(); err != nil {
		c.log.Warn("rebind failed", "err", err)
		c.cache.Reset()
		return
	}
	// Off the loop, so the next change can supersede it.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.Refresh(c.ctx); err != nil && !errors.Is(err, tokenstate.ErrSuperseded) {
			c.log.Warn("refresh failed", "err", err)
		}
	}()
}

func (c *Client) rebind() error {
	h, err := contract.Bind(c.sess, c.opts.Address, c.opts.Descriptor, contract.WithPollInterval(c.opts.PollInterval))
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.log.Debug("bound", "account", h.Account().Hex(), "chain", h.ChainID())
	return nil
}
