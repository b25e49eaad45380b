// Package core provides the wallet domain model: money, children,
// transactions and weekly allowances, plus the validation rules shared by
// every mutation path.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a fixed-point currency amount in cents. All arithmetic and
// comparisons happen on the integer cents value so decimal amounts like
// 123.45 stay exact.
type Money struct {
	Cents int64
}

// ParseDecimal converts a decimal string to Money with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional leading sign, and performs half-up rounding on the third decimal
// place. Returns an error for malformed input only; zero and negative values
// parse fine and are rejected later by ValidateAmount so callers can report
// the distinct contract messages.
//
// Examples:
//
//	ParseDecimal("12.34")  -> Money{1234}, nil
//	ParseDecimal("12,345") -> Money{1235}, nil (rounds half-up)
//	ParseDecimal("-10")    -> Money{-1000}, nil
func ParseDecimal(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("empty amount")
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, fmt.Errorf("malformed amount: %q", s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, fmt.Errorf("malformed amount: %q", s)
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, fmt.Errorf("malformed amount: %q", s)
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("malformed amount: %q", s)
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, fmt.Errorf("amount out of range: %q", s)
	}

	// Take first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if negative {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// FromCents wraps an integer cents value.
func FromCents(cents int64) Money {
	return Money{Cents: cents}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.Cents < other.Cents
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String formats the amount with two decimals, e.g. "123.45" or "-0.05".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Euros returns the value as a float64 for display purposes only.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}
