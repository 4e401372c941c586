package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/Mohsinsiddi/tokendesk/internal/logx"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
)

// Backend is the node connection the provider signs for. *ethclient.Client
// implements it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Approver is shown each transaction before it is signed. Returning false
// rejects it.
type Approver func(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error)

// Provider is a local wallet provider: keys from the Manager's keystore,
// chain access through a Backend. It fills nonce, gas and fees itself.
type Provider struct {
	manager *Manager
	approve Approver
	log     *log.Logger

	mu      sync.RWMutex
	backend Backend

	feed event.Feed
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithApprover asks approve before signing each transaction.
func WithApprover(approve Approver) ProviderOption {
	return func(p *Provider) { p.approve = approve }
}

// WithLogger sets the provider's logger.
func WithLogger(l *log.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l.WithPrefix("wallet")
		}
	}
}

// NewProvider returns a provider for the signing wallets in manager.
func NewProvider(backend Backend, manager *Manager, opts ...ProviderOption) *Provider {
	p := &Provider{backend: backend, manager: manager, log: logx.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discoverer returns a session.Discoverer that dials rpcURL. An empty URL or
// a keystore without signing wallets means no provider is present.
func Discoverer(rpcURL string, manager *Manager, opts ...ProviderOption) session.Discoverer {
	return func(ctx context.Context) (session.Provider, error) {
		if rpcURL == "" || len(manager.Signing()) == 0 {
			return nil, nil
		}
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
		}
		return NewProvider(client, manager, opts...), nil
	}
}

func (p *Provider) node() Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend
}

// accounts lists signing wallet addresses, the default first.
func (p *Provider) accounts() []common.Address {
	var out []common.Address
	for _, w := range p.manager.Signing() {
		out = append(out, w.Account())
	}
	return out
}

// RequestAccounts implements session.Provider.
func (p *Provider) RequestAccounts(context.Context) ([]common.Address, error) {
	accounts := p.accounts()
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no signing wallet (add one with `tokendesk wallet add`)", session.ErrUserRejected)
	}
	return accounts, nil
}

// ChainID implements session.Provider.
func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.node().ChainID(ctx)
}

// BlockNumber implements session.Reader.
func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	return p.node().BlockNumber(ctx)
}

// CallContract implements session.Reader.
func (p *Provider) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return p.node().CallContract(ctx, msg, block)
}

// TransactionReceipt implements session.Provider.
func (p *Provider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return p.node().TransactionReceipt(ctx, hash)
}

// SubscribeEvents implements session.Provider.
func (p *Provider) SubscribeEvents(ch chan<- session.Event) event.Subscription {
	return p.feed.Subscribe(ch)
}

// SendTransaction builds an EIP-1559 transaction for req, asks the approver,
// signs it with from's key and broadcasts it. Gas estimation failures, which
// is how nodes report a revert before broadcast, are returned unchanged.
func (p *Provider) SendTransaction(ctx context.Context, from common.Address, req session.TxRequest) (common.Hash, error) {
	w, err := p.manager.ByAddress(from)
	if err != nil {
		return common.Hash{}, err
	}
	node := p.node()

	chainID, err := node.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting chain id: %w", err)
	}
	nonce, err := node.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting nonce: %w", err)
	}
	tip, err := node.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting tip: %w", err)
	}
	head, err := node.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	gas, err := node.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: req.Data})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	if p.approve != nil {
		ok, err := p.approve(ctx, from, tx)
		if err != nil {
			return common.Hash{}, err
		}
		if !ok {
			return common.Hash{}, session.ErrUserRejected
		}
	}

	signed, err := NewSigner(w, p.manager.Keystore()).SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	p.log.Debug("broadcast", "tx", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
	return signed.Hash(), nil
}

// Use makes the named wallet the default and announces the new account order.
func (p *Provider) Use(name string) error {
	w, err := p.manager.Get(name)
	if err != nil {
		return err
	}
	if !w.CanSign() {
		return fmt.Errorf("%w: %q", ErrWatchOnly, name)
	}
	if err := p.manager.SetDefault(name); err != nil {
		return err
	}
	p.feed.Send(session.Event{Kind: session.AccountsChanged, Accounts: p.accounts()})
	return nil
}

// SwitchBackend points the provider at another node and announces its chain.
// The previous backend is closed if it can be.
func (p *Provider) SwitchBackend(ctx context.Context, backend Backend) error {
	id, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("getting chain id: %w", err)
	}
	p.mu.Lock()
	old := p.backend
	p.backend = backend
	p.mu.Unlock()
	if c, ok := old.(interface{ Close() }); ok && old != backend {
		c.Close()
	}
	p.feed.Send(session.Event{Kind: session.ChainChanged, ChainID: id})
	return nil
}

// Disconnect announces that the provider is gone.
func (p *Provider) Disconnect(err error) {
	if err == nil {
		err = errors.New("wallet provider closed")
	}
	p.feed.Send(session.Event{Kind: session.Disconnected, Err: err})
}
