// Package sessiontest provides an in-memory wallet provider backed by a
// simulated token contract, for tests of everything above the session.
package sessiontest

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Revert reasons produced by Token, worded like OpenZeppelin v4.
const (
	ReasonNotOwner      = "execution reverted: Ownable: caller is not the owner"
	ReasonPaused        = "execution reverted: Pausable: paused"
	ReasonNotPaused     = "execution reverted: Pausable: not paused"
	ReasonBurnExceeds   = "execution reverted: ERC20: burn amount exceeds balance"
	ReasonTransferFunds = "execution reverted: ERC20: transfer amount exceeds balance"
)

// TokenState is the contract storage at one block.
type TokenState struct {
	Name       string
	Decimals   uint8
	Supply     *big.Int
	Balances   map[common.Address]*big.Int
	Allowances map[[2]common.Address]*big.Int
	Paused     bool
	Owner      common.Address
}

func (s TokenState) clone() TokenState {
	c := s
	c.Supply = new(big.Int).Set(s.Supply)
	c.Balances = make(map[common.Address]*big.Int, len(s.Balances))
	for k, v := range s.Balances {
		c.Balances[k] = new(big.Int).Set(v)
	}
	c.Allowances = make(map[[2]common.Address]*big.Int, len(s.Allowances))
	for k, v := range s.Allowances {
		c.Allowances[k] = new(big.Int).Set(v)
	}
	return c
}

func (s TokenState) balance(a common.Address) *big.Int {
	if b, ok := s.Balances[a]; ok {
		return b
	}
	return new(big.Int)
}

// Token simulates a mintable, burnable, pausable ERC-20 with per-block
// history so reads pinned to a block are reproducible.
type Token struct {
	mu      sync.Mutex
	abi     abi.ABI
	history []TokenState // index = block number
}

// NewToken creates a token whose genesis (block 0) state is genesis.
func NewToken(descriptor abi.ABI, genesis TokenState) *Token {
	if genesis.Supply == nil {
		genesis.Supply = new(big.Int)
	}
	if genesis.Balances == nil {
		genesis.Balances = map[common.Address]*big.Int{}
	}
	if genesis.Allowances == nil {
		genesis.Allowances = map[[2]common.Address]*big.Int{}
	}
	return &Token{abi: descriptor, history: []TokenState{genesis.clone()}}
}

// Head returns the latest block number.
func (t *Token) Head() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint64(len(t.history) - 1)
}

// State returns a copy of the state at the latest block.
func (t *Token) State() TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history[len(t.history)-1].clone()
}

// Mutate applies fn to a copy of the latest state and appends it as a new block.
func (t *Token) Mutate(fn func(*TokenState)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.history[len(t.history)-1].clone()
	fn(&next)
	t.history = append(t.history, next)
	return uint64(len(t.history) - 1)
}

// Read executes a view call at block (nil = latest).
func (t *Token) Read(data []byte, block *big.Int) (method string, out []byte, err error) {
	m, args, err := t.decode(data)
	if err != nil {
		return "", nil, err
	}

	t.mu.Lock()
	idx := len(t.history) - 1
	if block != nil {
		if !block.IsUint64() || block.Uint64() > uint64(idx) {
			t.mu.Unlock()
			return m.Name, nil, fmt.Errorf("header not found for block %s", block)
		}
		idx = int(block.Uint64())
	}
	st := t.history[idx]
	t.mu.Unlock()

	var value any
	switch m.Name {
	case "name":
		value = st.Name
	case "symbol":
		value = st.Name
	case "decimals":
		value = st.Decimals
	case "totalSupply":
		value = new(big.Int).Set(st.Supply)
	case "balanceOf":
		value = new(big.Int).Set(st.balance(args[0].(common.Address)))
	case "allowance":
		a := st.Allowances[[2]common.Address{args[0].(common.Address), args[1].(common.Address)}]
		if a == nil {
			a = new(big.Int)
		}
		value = new(big.Int).Set(a)
	case "paused":
		value = st.Paused
	case "owner":
		value = st.Owner
	default:
		return m.Name, nil, fmt.Errorf("read of %s not simulated", m.Name)
	}
	out, err = m.Outputs.Pack(value)
	return m.Name, out, err
}

// Execute applies a state-changing call from sender and mines it into a new
// block. Reverts leave state unchanged and return the revert reason.
func (t *Token) Execute(from common.Address, data []byte) (method string, args []any, block uint64, err error) {
	m, args, err := t.decode(data)
	if err != nil {
		return "", nil, 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.history[len(t.history)-1].clone()
	if err := apply(&next, from, m.Name, args); err != nil {
		return m.Name, args, 0, err
	}
	t.history = append(t.history, next)
	return m.Name, args, uint64(len(t.history) - 1), nil
}

func apply(st *TokenState, from common.Address, method string, args []any) error {
	switch method {
	case "mint":
		if from != st.Owner {
			return errors.New(ReasonNotOwner)
		}
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		st.Balances[to] = new(big.Int).Add(st.balance(to), amount)
		st.Supply.Add(st.Supply, amount)
	case "burn":
		amount := args[0].(*big.Int)
		if st.balance(from).Cmp(amount) < 0 {
			return errors.New(ReasonBurnExceeds)
		}
		st.Balances[from] = new(big.Int).Sub(st.balance(from), amount)
		st.Supply.Sub(st.Supply, amount)
	case "pause":
		if from != st.Owner {
			return errors.New(ReasonNotOwner)
		}
		if st.Paused {
			return errors.New(ReasonPaused)
		}
		st.Paused = true
	case "unpause":
		if from != st.Owner {
			return errors.New(ReasonNotOwner)
		}
		if !st.Paused {
			return errors.New(ReasonNotPaused)
		}
		st.Paused = false
	case "transfer":
		if st.Paused {
			return errors.New(ReasonPaused)
		}
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		if st.balance(from).Cmp(amount) < 0 {
			return errors.New(ReasonTransferFunds)
		}
		st.Balances[from] = new(big.Int).Sub(st.balance(from), amount)
		st.Balances[to] = new(big.Int).Add(st.balance(to), amount)
	case "approve":
		spender, amount := args[0].(common.Address), args[1].(*big.Int)
		st.Allowances[[2]common.Address{from, spender}] = new(big.Int).Set(amount)
	default:
		return fmt.Errorf("write %s not simulated", method)
	}
	return nil
}

func (t *Token) decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("calldata shorter than a selector")
	}
	m, err := t.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s args: %w", m.Name, err)
	}
	return m, args, nil
}
