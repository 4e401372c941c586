package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Typed read accessors for the token interface. block nil means latest.

// Name returns the token name.
func (h *Handle) Name(ctx context.Context, block *big.Int) (string, error) {
	return callOne[string](ctx, h, block, "name")
}

// Decimals returns the token's decimal places.
func (h *Handle) Decimals(ctx context.Context, block *big.Int) (uint8, error) {
	return callOne[uint8](ctx, h, block, "decimals")
}

// TotalSupply returns the total supply in base units.
func (h *Handle) TotalSupply(ctx context.Context, block *big.Int) (*big.Int, error) {
	return callOne[*big.Int](ctx, h, block, "totalSupply")
}

// BalanceOf returns account's balance in base units.
func (h *Handle) BalanceOf(ctx context.Context, block *big.Int, account common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, h, block, "balanceOf", account)
}

// Allowance returns how much spender may move on behalf of owner.
func (h *Handle) Allowance(ctx context.Context, block *big.Int, owner, spender common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, h, block, "allowance", owner, spender)
}

// Paused reports whether transfers are paused.
func (h *Handle) Paused(ctx context.Context, block *big.Int) (bool, error) {
	return callOne[bool](ctx, h, block, "paused")
}

// Owner returns the contract owner.
func (h *Handle) Owner(ctx context.Context, block *big.Int) (common.Address, error) {
	return callOne[common.Address](ctx, h, block, "owner")
}

func callOne[T any](ctx context.Context, h *Handle, block *big.Int, method string, args ...any) (T, error) {
	var zero T
	out, err := h.Call(ctx, block, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}
