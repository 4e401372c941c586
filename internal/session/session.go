package session

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/Mohsinsiddi/tokendesk/internal/logx"
)

// eventBuffer absorbs bursts of provider notifications while a Change is
// being delivered to slow subscribers.
const eventBuffer = 16

// Session owns the provider handle and the active account set.
type Session struct {
	provider Provider
	log      *log.Logger

	mu        sync.RWMutex
	accounts  []common.Address
	chainID   *big.Int
	connected bool
	quit      chan struct{}
	done      chan struct{}

	// connectMu serialises Connect so a session is established at most once
	// until the provider disconnects it.
	connectMu sync.Mutex
	feed      event.Feed
}

// New creates a disconnected session around p.
func New(p Provider, logger *log.Logger) *Session {
	if logger == nil {
		logger = logx.Discard()
	}
	return &Session{provider: p, log: logger.WithPrefix("session")}
}

// Provider returns the provider this session was created with.
func (s *Session) Provider() Provider { return s.provider }

// Connect requests account access and starts listening for provider events.
// It is a no-op on an already connected session.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.Connected() {
		return nil
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("requesting accounts: %w: no accounts granted", ErrUserRejected)
	}
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}

	events := make(chan Event, eventBuffer)
	sub := s.provider.SubscribeEvents(events)

	s.mu.Lock()
	s.accounts = slices.Clone(accounts)
	s.chainID = chainID
	s.connected = true
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	quit, done := s.quit, s.done
	s.mu.Unlock()

	go s.loop(sub, events, quit, done)

	s.log.Info("connected", "account", accounts[0].Hex(), "accounts", len(accounts), "chain", chainID)
	s.feed.Send(Change{Kind: Connected, Accounts: slices.Clone(accounts), ChainID: chainID, Connected: true})
	return nil
}

// Connected reports whether the session currently holds granted accounts.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Accounts returns a copy of the active account set.
func (s *Session) Accounts() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts)
}

// ActiveAccount returns the account transactions are sent from.
func (s *Session) ActiveAccount() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected || len(s.accounts) == 0 {
		return common.Address{}, false
	}
	return s.accounts[0], true
}

// ChainID returns the chain the session was last connected to.
func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Subscribe delivers every Change applied by the session. Sends block until
// all subscribers receive, so ch should be buffered.
func (s *Session) Subscribe(ch chan<- Change) event.Subscription {
	return s.feed.Subscribe(ch)
}

// Close stops listening for provider events and marks the session
// disconnected without publishing a Change.
func (s *Session) Close() {
	s.mu.Lock()
	quit, done := s.quit, s.done
	s.quit = nil
	s.mu.Unlock()

	if quit == nil {
		return
	}
	close(quit)
	<-done
}

func (s *Session) loop(sub event.Subscription, events <-chan Event, quit, done chan struct{}) {
	defer close(done)
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-events:
			change, keep := s.apply(ev)
			s.feed.Send(change)
			if !keep {
				return
			}
		case err := <-sub.Err():
			// A closed provider subscription is a provider-initiated disconnect.
			change, _ := s.apply(Event{Kind: Disconnected, Err: err})
			s.feed.Send(change)
			return
		case <-quit:
			s.reset()
			return
		}
	}
}

// apply folds ev into the session state. keep is false once the session has
// been disconnected and the loop should stop.
func (s *Session) apply(ev Event) (change Change, keep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case AccountsChanged:
		s.accounts = slices.Clone(ev.Accounts)
		if len(s.accounts) == 0 {
			// Wallets report a revoked grant as an empty account list.
			s.resetLocked()
			s.log.Warn("all accounts revoked")
			return Change{Kind: Disconnected, Err: ErrUserRejected}, false
		}
		s.log.Info("accounts changed", "account", s.accounts[0].Hex(), "accounts", len(s.accounts))
	case ChainChanged:
		if ev.ChainID != nil {
			s.chainID = new(big.Int).Set(ev.ChainID)
		}
		s.log.Info("chain changed", "chain", s.chainID)
	case Disconnected:
		s.resetLocked()
		s.log.Warn("provider disconnected", "err", ev.Err)
		return Change{Kind: Disconnected, Err: ev.Err}, false
	default:
		s.log.Debug("ignoring provider event", "kind", ev.Kind)
	}

	return Change{
		Kind:      ev.Kind,
		Accounts:  slices.Clone(s.accounts),
		ChainID:   s.chainID,
		Connected: s.connected,
	}, true
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.accounts = nil
	s.connected = false
	s.quit = nil
}
