// Package contract binds a token ABI and a fixed contract address to a
// connected wallet session.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/tokendesk/internal/session"
)

// Errors.
var (
	ErrNoSession      = errors.New("no connected wallet session")
	ErrUnknownMethod  = errors.New("method not in contract ABI")
	ErrNotReadMethod  = errors.New("method is not read-only")
	ErrNotWriteMethod = errors.New("method is not state-changing")
	ErrReverted       = errors.New("transaction reverted")
)

// DefaultPollInterval is how often Transact checks for a receipt.
const DefaultPollInterval = 2 * time.Second

// Handle is an immutable view of the token contract as seen by one account
// of one session. Build a new Handle whenever the session changes.
type Handle struct {
	address  common.Address
	abi      abi.ABI
	account  common.Address
	chainID  *big.Int
	provider session.Provider
	poll     time.Duration
}

// BindOption configures Bind.
type BindOption func(*Handle)

// WithPollInterval overrides the receipt poll interval.
func WithPollInterval(d time.Duration) BindOption {
	return func(h *Handle) {
		if d > 0 {
			h.poll = d
		}
	}
}

// Bind captures the session's active account and provider. It makes no
// network call.
func Bind(s *session.Session, address common.Address, descriptor abi.ABI, opts ...BindOption) (*Handle, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	account, ok := s.ActiveAccount()
	if !ok {
		return nil, ErrNoSession
	}
	h := &Handle{
		address:  address,
		abi:      descriptor,
		account:  account,
		chainID:  s.ChainID(),
		provider: s.Provider(),
		poll:     DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Address returns the contract address.
func (h *Handle) Address() common.Address { return h.address }

// Account returns the account this handle sends from.
func (h *Handle) Account() common.Address { return h.account }

// ChainID returns the chain the session was on when the handle was built.
func (h *Handle) ChainID() *big.Int { return h.chainID }

// HasMethod reports whether the bound ABI declares name.
func (h *Handle) HasMethod(name string) bool {
	_, ok := h.abi.Methods[name]
	return ok
}

// BlockNumber returns the provider's latest block.
func (h *Handle) BlockNumber(ctx context.Context) (uint64, error) {
	return h.provider.BlockNumber(ctx)
}

// Call runs a read-only method at block (nil = latest) and returns the
// decoded outputs.
func (h *Handle) Call(ctx context.Context, block *big.Int, method string, args ...any) ([]any, error) {
	m, ok := h.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if !m.IsConstant() {
		return nil, fmt.Errorf("%w: %s", ErrNotReadMethod, method)
	}

	data, err := h.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	msg := ethereum.CallMsg{From: h.account, To: &h.address, Data: data}
	out, err := h.provider.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	values, err := h.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return values, nil
}

// Transact sends a state-changing call signed by the handle's account and
// blocks until it is mined. A mined but reverted transaction returns its
// receipt together with ErrReverted.
func (h *Handle) Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	m, ok := h.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if m.IsConstant() {
		return nil, fmt.Errorf("%w: %s", ErrNotWriteMethod, method)
	}

	data, err := h.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	hash, err := h.provider.SendTransaction(ctx, h.account, session.TxRequest{To: h.address, Data: data})
	if err != nil {
		return nil, err
	}
	return h.waitMined(ctx, hash)
}

// waitMined polls for the receipt of hash until ctx is done.
func (h *Handle) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		receipt, err := h.provider.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w (tx %s)", ErrReverted, hash.Hex())
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("fetching receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
