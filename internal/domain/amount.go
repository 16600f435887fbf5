package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// Amounts are nanoTON subunits carried as decimal-string integers at every
// boundary so no value ever passes through a float.

// ParseAmount parses a caller-supplied amount. It accepts a non-negative
// integer in plain decimal form and rejects everything else (signs, leading
// "+", hex, exponents, empty strings) with ErrValidation.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is required: %w", ErrValidation)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("amount %q is not a non-negative integer: %w", s, ErrValidation)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a non-negative integer: %w", s, ErrValidation)
	}
	return n, nil
}

// ParseStoredAmount parses an amount read back from the ledger store. A
// malformed value here means an upstream invariant was violated, so the
// failure is ErrCorruptData rather than a user-facing validation error.
func ParseStoredAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("stored amount %q: %w", s, ErrCorruptData)
	}
	return n, nil
}
