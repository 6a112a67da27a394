// Package core holds the domain types shared by the storage, report
// and conversation layers, plus amount parsing for user input.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-entered amount string.
//
// Input is trimmed first; anything decimal.NewFromString rejects (empty
// string, whitespace, words, "1.2.3") yields ErrInvalidAmount. No range
// check is applied beyond "parses as a number": the add flow re-prompts
// on failure and the caller decides what to do with the value.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
