package tokenstate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/tokendesk/internal/logx"
)

// Errors.
var (
	ErrReadFailure = errors.New("token state read failed")
	ErrSuperseded  = errors.New("refresh superseded by a newer one")
)

// Source is the read side of a bound contract. *contract.Handle implements it.
type Source interface {
	Account() common.Address
	BlockNumber(ctx context.Context) (uint64, error)
	Name(ctx context.Context, block *big.Int) (string, error)
	Decimals(ctx context.Context, block *big.Int) (uint8, error)
	TotalSupply(ctx context.Context, block *big.Int) (*big.Int, error)
	BalanceOf(ctx context.Context, block *big.Int, account common.Address) (*big.Int, error)
}

// Cache holds the published snapshot. At most one refresh is meaningful at a
// time: starting a refresh cancels the one in flight, and only the most
// recently started refresh may publish.
type Cache struct {
	log *log.Logger
	gen *atomic.Uint64

	// pub orders the generation check, the store and the feed send, so
	// subscribers never see an older snapshot after a newer one.
	pub sync.Mutex

	mu        sync.RWMutex
	current   TokenState
	cancel    context.CancelFunc
	cancelGen uint64

	feed event.Feed
}

// New returns an empty cache.
func New(logger *log.Logger) *Cache {
	if logger == nil {
		logger = logx.Discard()
	}
	return &Cache{log: logger.WithPrefix("tokenstate"), gen: atomic.NewUint64(0)}
}

// Snapshot returns the last published state.
func (c *Cache) Snapshot() TokenState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.clone()
}

// Subscribe delivers every published snapshot, including the empty one sent
// by Reset.
func (c *Cache) Subscribe(ch chan<- TokenState) event.Subscription {
	return c.feed.Subscribe(ch)
}

// Refresh reads name, decimals, total supply and the account balance at a
// single block and publishes them as one snapshot. Any failed read fails the
// whole refresh with ErrReadFailure and leaves the published state alone. If
// a newer refresh starts first, Refresh returns ErrSuperseded.
func (c *Cache) Refresh(ctx context.Context, src Source) (TokenState, error) {
	ctx, gen, done := c.begin(ctx)
	defer done()

	head, err := src.BlockNumber(ctx)
	if err != nil {
		return TokenState{}, c.fail(gen, fmt.Errorf("block number: %w", err))
	}
	block := new(big.Int).SetUint64(head)
	st := TokenState{Account: src.Account(), Block: head}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Name, err = src.Name(gctx, block)
		return read("name", err)
	})
	g.Go(func() (err error) {
		st.Decimals, err = src.Decimals(gctx, block)
		return read("decimals", err)
	})
	g.Go(func() (err error) {
		st.TotalSupply, err = src.TotalSupply(gctx, block)
		return read("totalSupply", err)
	})
	g.Go(func() (err error) {
		st.Balance, err = src.BalanceOf(gctx, block, st.Account)
		return read("balanceOf", err)
	})
	if err := g.Wait(); err != nil {
		return TokenState{}, c.fail(gen, err)
	}

	if !c.publish(gen, st) {
		return TokenState{}, ErrSuperseded
	}
	c.log.Debug("published", "account", st.Account.Hex(), "block", st.Block, "gen", gen)
	return st.clone(), nil
}

// Reset cancels any refresh in flight and publishes the empty snapshot.
func (c *Cache) Reset() {
	c.pub.Lock()
	defer c.pub.Unlock()

	gen := c.gen.Inc()
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.current = TokenState{}
	c.mu.Unlock()
	c.log.Debug("reset", "gen", gen)
	c.feed.Send(TokenState{})
}

// begin registers a new generation and cancels the previous one.
func (c *Cache) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	gen := c.gen.Inc()
	c.cancel, c.cancelGen = cancel, gen
	c.mu.Unlock()

	return ctx, gen, func() {
		cancel()
		c.mu.Lock()
		if c.cancelGen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}
}

func (c *Cache) publish(gen uint64, st TokenState) bool {
	c.pub.Lock()
	defer c.pub.Unlock()

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return false
	}
	c.current = st.clone()
	c.mu.Unlock()

	c.feed.Send(st.clone())
	return true
}

func (c *Cache) fail(gen uint64, err error) error {
	if c.gen.Load() != gen {
		return ErrSuperseded
	}
	c.log.Warn("refresh failed", "gen", gen, "err", err)
	return fmt.Errorf("%w: %w", ErrReadFailure, err)
}

func read(method string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
