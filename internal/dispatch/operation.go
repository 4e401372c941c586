// Package dispatch validates and submits state-changing token operations on
// behalf of the active account.
package dispatch

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
)

// Errors.
var (
	ErrValidation          = errors.New("validation failed")
	ErrTransactionRejected = errors.New("transaction rejected")
)

// Kind names a token operation.
type Kind uint8

// Operation kinds.
const (
	Mint Kind = iota + 1
	Burn
	Pause
	Unpause
	Transfer
	Approve
	MultiSend
)

var kindNames = map[Kind]string{
	Mint:      "mint",
	Burn:      "burn",
	Pause:     "pause",
	Unpause:   "unpause",
	Transfer:  "transfer",
	Approve:   "approve",
	MultiSend: "multisend",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// State is where an operation is in its lifecycle.
type State uint8

// Operation states. Validation failures return to Idle.
const (
	Idle State = iota
	Validating
	Submitted
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitted:
		return "submitted"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Operation is one pending call. It lives only for the duration of a dispatch.
type Operation struct {
	ID      uint64
	Kind    Kind
	Account common.Address
	// To is the recipient (mint, transfer, multisend) or spender (approve).
	To     common.Address
	Amount string
	Raw    *big.Int
	// Index is the pair position within a multisend, -1 otherwise.
	Index int
}

// Transition is published on every state change.
type Transition struct {
	Op    Operation
	State State
	Tx    common.Hash
	Err   error
}

// Result is what a confirmed operation produced. State is the snapshot from
// the refresh that followed confirmation; RefreshErr is set if that refresh
// did not publish.
type Result struct {
	Op         Operation
	Receipt    *types.Receipt
	State      tokenstate.TokenState
	RefreshErr error
}

// RejectedError reports a call the provider or chain refused. Reason is the
// provider's message, unmodified.
type RejectedError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Kind, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Err }

func (e *RejectedError) Is(target error) bool { return target == ErrTransactionRejected }

// MultiSendError reports the pair that stopped a multisend. Pairs before
// Index were confirmed; pairs after it were never sent.
type MultiSendError struct {
	Index     int
	Completed int
	Err       error
}

func (e *MultiSendError) Error() string {
	return fmt.Sprintf("multisend stopped at index %d (%d sent): %v", e.Index, e.Completed, e.Err)
}

func (e *MultiSendError) Unwrap() error { return e.Err }
