// Package session holds the connection to the external wallet provider and
// tracks the active account set.
//
// The provider is the only thing that can sign. Everything downstream reads the
// current accounts from a Session and re-derives when the Session reports a
// Change; nothing polls the provider.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Errors.
var (
	ErrNoProviderDetected = errors.New("no wallet provider detected")
	ErrUserRejected       = errors.New("user rejected the request")
)

// TxRequest is a state-changing call handed to the provider. The provider owns
// nonce, gas and fee selection.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Reader is the read-only half of the provider boundary.
type Reader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Provider is an external wallet: account management, transaction signing and
// a read channel to the chain it is connected to.
type Provider interface {
	Reader

	// RequestAccounts asks the user for account access. Implementations
	// return ErrUserRejected (possibly wrapped) when access is denied.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the chain the provider is currently connected to.
	ChainID(ctx context.Context) (*big.Int, error)

	// SendTransaction signs req as from and broadcasts it, returning the
	// transaction hash once the provider has acknowledged it.
	SendTransaction(ctx context.Context, from common.Address, req TxRequest) (common.Hash, error)

	// TransactionReceipt returns ethereum.NotFound while tx is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// SubscribeEvents delivers provider-pushed notifications.
	SubscribeEvents(ch chan<- Event) event.Subscription
}

// Discoverer looks for one kind of provider. It returns (nil, nil) when that
// kind is simply not present.
type Discoverer func(ctx context.Context) (Provider, error)

// Discover returns the first provider found by the candidates, in order.
func Discover(ctx context.Context, candidates ...Discoverer) (Provider, error) {
	var errs []error
	for _, find := range candidates {
		p, err := find(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p != nil {
			return p, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoProviderDetected, errors.Join(errs...))
	}
	return nil, ErrNoProviderDetected
}
