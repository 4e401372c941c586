package dispatch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/atomic"

	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/logx"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
)

// Token is the bound contract as the dispatcher needs it. *contract.Handle
// implements it.
type Token interface {
	tokenstate.Source
	Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error)
	Allowance(ctx context.Context, block *big.Int, owner, spender common.Address) (*big.Int, error)
}

// Refresher re-reads token state after a confirmed operation. It resolves
// the account to read for itself, so a refresh that starts after an account
// change reads the new account rather than the one that submitted.
type Refresher interface {
	Refresh(ctx context.Context) (tokenstate.TokenState, error)
}

// Dispatcher runs operations through Validating, Submitted and then
// Confirmed or Failed. Calls for the same account are serialized.
type Dispatcher struct {
	cache Refresher
	log   *log.Logger
	ids   *atomic.Uint64

	mu       sync.Mutex
	locks    map[common.Address]chan struct{}
	inflight map[uint64]Operation

	feed event.Feed
}

// New returns a dispatcher that refreshes cache after each confirmation.
func New(cache Refresher, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = logx.Discard()
	}
	return &Dispatcher{
		cache:    cache,
		log:      logger.WithPrefix("dispatch"),
		ids:      atomic.NewUint64(0),
		locks:    map[common.Address]chan struct{}{},
		inflight: map[uint64]Operation{},
	}
}

// Subscribe delivers every Transition.
func (d *Dispatcher) Subscribe(ch chan<- Transition) event.Subscription {
	return d.feed.Subscribe(ch)
}

// InFlight returns operations that have been submitted and not yet resolved,
// oldest first.
func (d *Dispatcher) InFlight() []Operation {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]Operation, 0, len(d.inflight))
	for _, op := range d.inflight {
		ops = append(ops, op)
	}
	slices.SortFunc(ops, func(a, b Operation) int { return cmp.Compare(a.ID, b.ID) })
	return ops
}

// Mint creates amount tokens for to. Only the owner may mint; the contract
// enforces that.
func (d *Dispatcher) Mint(ctx context.Context, tok Token, to, amount string) (*Result, error) {
	op := d.newOp(tok, Mint, amount)
	d.emit(op, Validating, common.Hash{}, nil)
	addr, err := ParseAddress("recipient", to)
	if err == nil {
		err = CheckAmount(amount)
	}
	if err != nil {
		return nil, d.invalid(op, err)
	}
	op.To = addr
	return d.run(ctx, tok, op, func(raw *big.Int) (string, []any) {
		return "mint", []any{addr, raw}
	})
}

// Burn destroys amount of the caller's tokens.
func (d *Dispatcher) Burn(ctx context.Context, tok Token, amount string) (*Result, error) {
	op := d.newOp(tok, Burn, amount)
	d.emit(op, Validating, common.Hash{}, nil)
	if err := CheckAmount(amount); err != nil {
		return nil, d.invalid(op, err)
	}
	return d.run(ctx, tok, op, func(raw *big.Int) (string, []any) {
		return "burn", []any{raw}
	})
}

// Pause halts transfers.
func (d *Dispatcher) Pause(ctx context.Context, tok Token) (*Result, error) {
	op := d.newOp(tok, Pause, "")
	d.emit(op, Validating, common.Hash{}, nil)
	return d.run(ctx, tok, op, func(*big.Int) (string, []any) { return "pause", nil })
}

// Unpause resumes transfers.
func (d *Dispatcher) Unpause(ctx context.Context, tok Token) (*Result, error) {
	op := d.newOp(tok, Unpause, "")
	d.emit(op, Validating, common.Hash{}, nil)
	return d.run(ctx, tok, op, func(*big.Int) (string, []any) { return "unpause", nil })
}

// Transfer sends amount to to.
func (d *Dispatcher) Transfer(ctx context.Context, tok Token, to, amount string) (*Result, error) {
	op := d.newOp(tok, Transfer, amount)
	d.emit(op, Validating, common.Hash{}, nil)
	addr, err := ParseAddress("recipient", to)
	if err == nil {
		err = CheckAmount(amount)
	}
	if err != nil {
		return nil, d.invalid(op, err)
	}
	op.To = addr
	return d.run(ctx, tok, op, func(raw *big.Int) (string, []any) {
		return "transfer", []any{addr, raw}
	})
}

// Approve sets spender's allowance over the caller's tokens to amount. Zero
// revokes the allowance.
func (d *Dispatcher) Approve(ctx context.Context, tok Token, spender, amount string) (*Result, error) {
	op := d.newOp(tok, Approve, amount)
	d.emit(op, Validating, common.Hash{}, nil)
	addr, err := ParseAddress("spender", spender)
	if err == nil {
		err = CheckAllowance(amount)
	}
	if err != nil {
		return nil, d.invalid(op, err)
	}
	op.To = addr
	return d.run(ctx, tok, op, func(raw *big.Int) (string, []any) {
		return "approve", []any{addr, raw}
	})
}

// MultiSend transfers amounts[i] to recipients[i], one transaction per pair,
// strictly in order. The first failure stops the batch and is returned as a
// *MultiSendError. Token state is refreshed once if any pair was confirmed.
func (d *Dispatcher) MultiSend(ctx context.Context, tok Token, recipients, amounts []string) ([]*Result, error) {
	batch := d.newOp(tok, MultiSend, "")
	d.emit(batch, Validating, common.Hash{}, nil)
	to, err := checkPairs(recipients, amounts)
	if err != nil {
		return nil, d.invalid(batch, err)
	}
	if tok == nil {
		return nil, d.failed(batch, contract.ErrNoSession)
	}

	release, err := d.lock(ctx, batch.Account)
	if err != nil {
		return nil, d.failed(batch, err)
	}
	defer release()

	decimals, err := tok.Decimals(ctx, nil)
	if err != nil {
		return nil, d.failed(batch, fmt.Errorf("%w: decimals: %w", tokenstate.ErrReadFailure, err))
	}
	raws := make([]*big.Int, len(amounts))
	for i, amount := range amounts {
		if raws[i], err = units.ToBaseUnits(amount, int(decimals)); err != nil {
			return nil, d.invalid(batch, fmt.Errorf("%w: amount[%d]: %w", ErrValidation, i, err))
		}
	}

	results := make([]*Result, 0, len(to))
	var runErr error
	for i := range to {
		op := d.newOp(tok, Transfer, amounts[i])
		op.To, op.Raw, op.Index = to[i], raws[i], i
		receipt, err := d.submit(ctx, tok, op, "transfer", to[i], raws[i])
		if err != nil {
			runErr = &MultiSendError{Index: i, Completed: len(results), Err: err}
			break
		}
		results = append(results, &Result{Op: op, Receipt: receipt})
	}

	if len(results) > 0 {
		st, refreshErr := d.refresh(ctx)
		for _, r := range results {
			r.State, r.RefreshErr = st, refreshErr
		}
	}
	if runErr != nil {
		d.emit(batch, Failed, common.Hash{}, runErr)
		return results, runErr
	}
	d.emit(batch, Confirmed, common.Hash{}, nil)
	return results, nil
}

// Allowance reads how much spender may move for owner, in base units.
func (d *Dispatcher) Allowance(ctx context.Context, tok Token, owner, spender string) (*big.Int, error) {
	o, err := ParseAddress("owner", owner)
	if err != nil {
		return nil, err
	}
	s, err := ParseAddress("spender", spender)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, contract.ErrNoSession
	}
	return tok.Allowance(ctx, nil, o, s)
}

// run executes a single operation: lock the account, convert the amount with
// live decimals, submit, refresh on confirmation.
func (d *Dispatcher) run(ctx context.Context, tok Token, op Operation, call func(raw *big.Int) (string, []any)) (*Result, error) {
	if tok == nil {
		return nil, d.failed(op, contract.ErrNoSession)
	}
	release, err := d.lock(ctx, op.Account)
	if err != nil {
		return nil, d.failed(op, err)
	}
	defer release()

	if op.Amount != "" {
		decimals, err := tok.Decimals(ctx, nil)
		if err != nil {
			return nil, d.failed(op, fmt.Errorf("%w: decimals: %w", tokenstate.ErrReadFailure, err))
		}
		if op.Raw, err = units.ToBaseUnits(op.Amount, int(decimals)); err != nil {
			return nil, d.invalid(op, fmt.Errorf("%w: %w", ErrValidation, err))
		}
	}

	method, args := call(op.Raw)
	receipt, err := d.submit(ctx, tok, op, method, args...)
	if err != nil {
		return nil, err
	}

	st, refreshErr := d.refresh(ctx)
	return &Result{Op: op, Receipt: receipt, State: st, RefreshErr: refreshErr}, nil
}

// submit sends one transaction and waits for its receipt. The caller holds
// the account lock.
func (d *Dispatcher) submit(ctx context.Context, tok Token, op Operation, method string, args ...any) (*types.Receipt, error) {
	d.track(op, true)
	defer d.track(op, false)

	d.emit(op, Submitted, common.Hash{}, nil)
	d.log.Info("submitting", "op", op.Kind, "account", op.Account.Hex(), "to", op.To.Hex(), "raw", op.Raw)

	receipt, err := tok.Transact(ctx, method, args...)
	if err != nil {
		rejected := &RejectedError{Kind: op.Kind, Reason: err.Error(), Err: err}
		var tx common.Hash
		if receipt != nil {
			tx = receipt.TxHash
		}
		d.log.Warn("rejected", "op", op.Kind, "account", op.Account.Hex(), "reason", rejected.Reason)
		d.emit(op, Failed, tx, rejected)
		return nil, rejected
	}

	d.log.Info("confirmed", "op", op.Kind, "tx", receipt.TxHash.Hex(), "block", receipt.BlockNumber)
	d.emit(op, Confirmed, receipt.TxHash, nil)
	return receipt, nil
}

func (d *Dispatcher) refresh(ctx context.Context) (tokenstate.TokenState, error) {
	if d.cache == nil {
		return tokenstate.TokenState{}, nil
	}
	st, err := d.cache.Refresh(ctx)
	if err != nil && !errors.Is(err, tokenstate.ErrSuperseded) {
		d.log.Warn("refresh after confirmation failed", "err", err)
	}
	return st, err
}

// lock serializes mutating calls per account.
func (d *Dispatcher) lock(ctx context.Context, account common.Address) (func(), error) {
	d.mu.Lock()
	sem, ok := d.locks[account]
	if !ok {
		sem = make(chan struct{}, 1)
		d.locks[account] = sem
	}
	d.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) newOp(tok Token, kind Kind, amount string) Operation {
	op := Operation{ID: d.ids.Inc(), Kind: kind, Amount: amount, Index: -1}
	if tok != nil {
		op.Account = tok.Account()
	}
	return op
}

func (d *Dispatcher) track(op Operation, pending bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pending {
		d.inflight[op.ID] = op
	} else {
		delete(d.inflight, op.ID)
	}
}

func (d *Dispatcher) invalid(op Operation, err error) error {
	d.log.Debug("invalid", "op", op.Kind, "err", err)
	d.emit(op, Idle, common.Hash{}, err)
	return err
}

func (d *Dispatcher) failed(op Operation, err error) error {
	d.emit(op, Failed, common.Hash{}, err)
	return err
}

func (d *Dispatcher) emit(op Operation, state State, tx common.Hash, err error) {
	d.feed.Send(Transition{Op: op, State: state, Tx: tx, Err: err})
}
