package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendesk/internal/units"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// ParseAddress checks that s is a 0x-prefixed 20-byte hex address.
func ParseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, validationf("%s is empty", field)
	}
	if !addressPattern.MatchString(s) {
		return common.Address{}, validationf("%s %q is not an address", field, s)
	}
	return common.HexToAddress(s), nil
}

// CheckAmount checks that amount is a positive decimal number. Whether it
// fits the token's decimals is only known at submit time.
func CheckAmount(amount string) error {
	d, err := units.Parse(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !d.IsPositive() {
		return validationf("amount must be greater than zero")
	}
	return nil
}

// CheckAllowance is CheckAmount for approvals, where zero is allowed.
func CheckAllowance(amount string) error {
	if _, err := units.Parse(amount); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func checkPairs(recipients, amounts []string) ([]common.Address, error) {
	if len(recipients) == 0 {
		return nil, validationf("no recipients")
	}
	if len(recipients) != len(amounts) {
		return nil, validationf("%d recipients but %d amounts", len(recipients), len(amounts))
	}
	to := make([]common.Address, len(recipients))
	for i := range recipients {
		a, err := ParseAddress(fmt.Sprintf("recipient[%d]", i), recipients[i])
		if err != nil {
			return nil, err
		}
		if err := CheckAmount(amounts[i]); err != nil {
			return nil, fmt.Errorf("amount[%d]: %w", i, err)
		}
		to[i] = a
	}
	return to, nil
}
