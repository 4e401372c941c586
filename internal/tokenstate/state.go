// Package tokenstate keeps the latest consistent view of the token as seen by
// the active account.
package tokenstate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendesk/internal/units"
)

// TokenState is one snapshot of the token. Every field comes from the same
// block. Amounts are base units; the *String methods are display projections.
type TokenState struct {
	Name        string
	Decimals    uint8
	TotalSupply *big.Int
	Balance     *big.Int
	Account     common.Address
	Block       uint64
}

// IsZero reports whether s is the empty snapshot published before the first
// refresh and after a reset.
func (s TokenState) IsZero() bool {
	return s.TotalSupply == nil && s.Balance == nil && s.Name == ""
}

// SupplyString formats TotalSupply using Decimals.
func (s TokenState) SupplyString() string {
	return units.ToDecimalString(s.TotalSupply, int(s.Decimals))
}

// BalanceString formats Balance using Decimals.
func (s TokenState) BalanceString() string {
	return units.ToDecimalString(s.Balance, int(s.Decimals))
}

func (s TokenState) clone() TokenState {
	c := s
	if s.TotalSupply != nil {
		c.TotalSupply = new(big.Int).Set(s.TotalSupply)
	}
	if s.Balance != nil {
		c.Balance = new(big.Int).Set(s.Balance)
	}
	return c
}
