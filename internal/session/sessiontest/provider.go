package sessiontest

import (
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"github.com/Mohsinsiddi/tokendesk/internal/session"
)

// Sent records one transaction the provider accepted for signing.
type Sent struct {
	From   common.Address
	Method string
	Args   []any
	Hash   common.Hash
}

// Provider is an in-memory session.Provider around a Token.
type Provider struct {
	Token *Token

	// Hooks. All optional.
	RejectAccounts bool
	// BeforeRead runs before every CallContract; returning an error fails it.
	BeforeRead func(ctx context.Context, method string) error
	// BeforeSend runs before a transaction is executed; returning an error
	// is reported as the provider rejecting the request.
	BeforeSend func(ctx context.Context, method string) error

	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int
	sent     []Sent
	reads    map[string]int
	receipts map[common.Hash]*types.Receipt
	feed     event.Feed
}

// NewProvider returns a provider granting accounts on chain 1.
func NewProvider(token *Token, accounts ...common.Address) *Provider {
	return &Provider{
		Token:    token,
		accounts: accounts,
		chainID:  big.NewInt(1),
		reads:    map[string]int{},
		receipts: map[common.Hash]*types.Receipt{},
	}
}

// RequestAccounts implements session.Provider.
func (p *Provider) RequestAccounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectAccounts {
		return nil, session.ErrUserRejected
	}
	return slices.Clone(p.accounts), nil
}

// ChainID implements session.Provider.
func (p *Provider) ChainID(context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.chainID), nil
}

// BlockNumber implements session.Reader.
func (p *Provider) BlockNumber(context.Context) (uint64, error) {
	return p.Token.Head(), nil
}

// CallContract implements session.Reader.
func (p *Provider) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	method := methodName(p.Token, msg.Data)
	if p.BeforeRead != nil {
		if err := p.BeforeRead(ctx, method); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	p.reads[method]++
	p.mu.Unlock()

	_, out, err := p.Token.Read(msg.Data, block)
	return out, err
}

// SendTransaction implements session.Provider. The transaction is mined
// immediately; reverts surface as errors, the way eth_estimateGas reports them.
func (p *Provider) SendTransaction(ctx context.Context, from common.Address, req session.TxRequest) (common.Hash, error) {
	method := methodName(p.Token, req.Data)
	if p.BeforeSend != nil {
		if err := p.BeforeSend(ctx, method); err != nil {
			return common.Hash{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.accounts, from) {
		return common.Hash{}, errors.New("unknown account " + from.Hex())
	}

	method, args, block, err := p.Token.Execute(from, req.Data)
	if err != nil {
		return common.Hash{}, err
	}
	hash := crypto.Keccak256Hash(from.Bytes(), req.Data, new(big.Int).SetUint64(block).Bytes())
	p.receipts[hash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(block),
	}
	p.sent = append(p.sent, Sent{From: from, Method: method, Args: args, Hash: hash})
	return hash, nil
}

// TransactionReceipt implements session.Provider.
func (p *Provider) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// SubscribeEvents implements session.Provider.
func (p *Provider) SubscribeEvents(ch chan<- session.Event) event.Subscription {
	return p.feed.Subscribe(ch)
}

// SetAccounts changes the granted accounts and notifies subscribers.
func (p *Provider) SetAccounts(accounts ...common.Address) {
	p.mu.Lock()
	p.accounts = accounts
	p.mu.Unlock()
	p.feed.Send(session.Event{Kind: session.AccountsChanged, Accounts: slices.Clone(accounts)})
}

// SetChain switches chains and notifies subscribers.
func (p *Provider) SetChain(id int64) {
	p.mu.Lock()
	p.chainID = big.NewInt(id)
	p.mu.Unlock()
	p.feed.Send(session.Event{Kind: session.ChainChanged, ChainID: big.NewInt(id)})
}

// Disconnect notifies subscribers that the provider went away.
func (p *Provider) Disconnect(err error) {
	p.feed.Send(session.Event{Kind: session.Disconnected, Err: err})
}

// Sent returns the accepted transactions in submission order.
func (p *Provider) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

// Reads returns how many times method was read.
func (p *Provider) Reads(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads[method]
}

// TotalReads returns the number of CallContract invocations.
func (p *Provider) TotalReads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.reads {
		n += c
	}
	return n
}

func methodName(t *Token, data []byte) string {
	if len(data) < 4 {
		return ""
	}
	m, err := t.abi.MethodById(data[:4])
	if err != nil {
		return ""
	}
	return m.Name
}
