package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
	"github.com/Mohsinsiddi/tokendesk/internal/session/sessiontest"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newProvider(accounts ...common.Address) *sessiontest.Provider {
	token := sessiontest.NewToken(contract.MustDescriptor("pausable"), sessiontest.TokenState{Name: "Test", Decimals: 18})
	return sessiontest.NewProvider(token, accounts...)
}

// nextChange waits for one Change or fails the test.
func nextChange(t *testing.T, ch <-chan session.Change) session.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session change")
		return session.Change{}
	}
}

func TestConnectGrantsAccounts(t *testing.T) {
	s := session.New(newProvider(alice, bob), nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.Connected())
	assert.Equal(t, []common.Address{alice, bob}, s.Accounts())
	active, ok := s.ActiveAccount()
	require.True(t, ok)
	assert.Equal(t, alice, active)
	assert.Equal(t, int64(1), s.ChainID().Int64())

	c := nextChange(t, changes)
	assert.Equal(t, session.Connected, c.Kind)
	assert.True(t, c.Connected)
}

func TestConnectTwiceIsNoop(t *testing.T) {
	s := session.New(newProvider(alice), nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))
	nextChange(t, changes)
	assert.Empty(t, changes, "second Connect must not publish")
}

func TestConnectUserRejected(t *testing.T) {
	p := newProvider(alice)
	p.RejectAccounts = true
	s := session.New(p, nil)

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, session.ErrUserRejected)
	assert.False(t, s.Connected())
	_, ok := s.ActiveAccount()
	assert.False(t, ok)
}

func TestConnectNoAccountsIsRejection(t *testing.T) {
	s := session.New(newProvider(), nil)
	assert.ErrorIs(t, s.Connect(context.Background()), session.ErrUserRejected)
}

func TestAccountsChangedEvent(t *testing.T) {
	p := newProvider(alice, bob)
	s := session.New(p, nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	nextChange(t, changes)

	p.SetAccounts(bob)
	c := nextChange(t, changes)
	assert.Equal(t, session.AccountsChanged, c.Kind)
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, bob, active)
	assert.Equal(t, []common.Address{bob}, s.Accounts())
}

func TestChainChangedEvent(t *testing.T) {
	p := newProvider(alice)
	s := session.New(p, nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	nextChange(t, changes)

	p.SetChain(11155111)
	c := nextChange(t, changes)
	assert.Equal(t, session.ChainChanged, c.Kind)
	assert.Equal(t, int64(11155111), s.ChainID().Int64())
	assert.True(t, s.Connected())
}

func TestRevokedAccountsDisconnect(t *testing.T) {
	p := newProvider(alice)
	s := session.New(p, nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	nextChange(t, changes)

	p.SetAccounts()
	c := nextChange(t, changes)
	assert.Equal(t, session.Disconnected, c.Kind)
	assert.False(t, s.Connected())
}

func TestReconnectAfterProviderDisconnect(t *testing.T) {
	p := newProvider(alice)
	s := session.New(p, nil)
	defer s.Close()

	changes := make(chan session.Change, 4)
	sub := s.Subscribe(changes)
	defer sub.Unsubscribe()

	require.NoError(t, s.Connect(context.Background()))
	nextChange(t, changes)

	p.Disconnect(errors.New("extension reloaded"))
	c := nextChange(t, changes)
	assert.Equal(t, session.Disconnected, c.Kind)
	assert.EqualError(t, c.Err, "extension reloaded")
	assert.False(t, s.Connected())

	require.NoError(t, s.Connect(context.Background()))
	c = nextChange(t, changes)
	assert.Equal(t, session.Connected, c.Kind)
	assert.True(t, s.Connected())

	// Events still flow on the new connection.
	p.SetAccounts(alice, bob)
	c = nextChange(t, changes)
	assert.Equal(t, session.AccountsChanged, c.Kind)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := session.New(newProvider(alice), nil)
	require.NoError(t, s.Connect(context.Background()))
	s.Close()
	s.Close()
	assert.False(t, s.Connected())
}

func TestDiscover(t *testing.T) {
	p := newProvider(alice)
	none := func(context.Context) (session.Provider, error) { return nil, nil }
	found := func(context.Context) (session.Provider, error) { return p, nil }
	broken := func(context.Context) (session.Provider, error) { return nil, errors.New("dial failed") }

	got, err := session.Discover(context.Background(), none, found)
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = session.Discover(context.Background(), none)
	assert.ErrorIs(t, err, session.ErrNoProviderDetected)

	_, err = session.Discover(context.Background(), broken, none)
	assert.ErrorIs(t, err, session.ErrNoProviderDetected)
	assert.Contains(t, err.Error(), "dial failed")
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "accountsChanged", session.AccountsChanged.String())
	assert.Equal(t, "chainChanged", session.ChainChanged.String())
	assert.Equal(t, "disconnected", session.Disconnected.String())
	assert.Equal(t, "connected", session.Connected.String())
}
