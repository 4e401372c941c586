package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies a provider notification or session change.
type EventKind int

// Event kinds.
const (
	Connected EventKind = iota
	AccountsChanged
	ChainChanged
	Disconnected
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a notification pushed by the provider. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  *big.Int
	Err      error
}

// Change is published by a Session after it has applied an event. Dependents
// rebuild their contract handle and refresh state on every Change.
type Change struct {
	Kind      EventKind
	Accounts  []common.Address
	ChainID   *big.Int
	Connected bool
	Err       error
}

// Active returns the first account, which is the one transactions are sent from.
func (c Change) Active() (common.Address, bool) {
	if len(c.Accounts) == 0 {
		return common.Address{}, false
	}
	return c.Accounts[0], true
}
