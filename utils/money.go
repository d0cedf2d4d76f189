package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision amounts are displayed and compared at.
const CurrencyPlaces = 2

var ErrInvalidAmount = errors.New("invalid amount")

// RoundCurrency rounds half away from zero to CurrencyPlaces, which is
// half-up for the non-negative amounts handled here.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// IsZeroCurrency reports whether d shows as 0.00.
func IsZeroCurrency(d decimal.Decimal) bool {
	return RoundCurrency(d).IsZero()
}

// ParseAmount converts user-typed input such as "1,234.50" or "₹ 500" to a decimal.
// Anything that is not a plain finite number after stripping grouping
// separators and currency markers is rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	for _, marker := range []string{"₹", "INR", "inr", "Rs.", "Rs", "rs"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	digits := strings.TrimPrefix(s, "-")
	dots := 0
	for _, r := range digits {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 || digits == "" || digits == "." {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
