package models

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a non-negative decimal integer in the smallest token unit.
// Underscores are accepted as digit separators ("10_000").
func ParseAmount(text string) (*big.Int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "_", "")
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	amount, ok := new(big.Int).SetString(cleaned, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, text)
	}

	return amount, nil
}

// FormatAmount renders nil as "0".
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}

	return amount.String()
}

// CloneAmount returns an independent copy so callers cannot mutate recorded values.
func CloneAmount(amount *big.Int) *big.Int {
	if amount == nil {
		return nil
	}

	return new(big.Int).Set(amount)
}

// IsPositive reports amount > 0; nil is not positive.
func IsPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
