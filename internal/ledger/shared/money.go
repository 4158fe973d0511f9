package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in integer minor currency units (e.g. cents). All
// ledger arithmetic happens on this type; decimal strings appear only at
// the API boundary.
type Money int64

// ErrBadAmount indicates an unparsable decimal amount.
var ErrBadAmount = errors.New("ledger: invalid amount")

// ParseMoney converts a decimal string such as "500.00" or "-12.5" into
// minor units. More than two fraction digits is an error, never rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrBadAmount
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrBadAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	// ParseUint keeps the parts digits-only; the sign was consumed above,
	// so "1.-5" and "+-5" fail here instead of sneaking through.
	units, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	cents, err := strconv.ParseUint(frac, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	v := int64(units)*100 + int64(cents)
	if neg {
		v = -v
	}
	return Money(v), nil
}

// String renders the amount as a two-decimal string.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Abs returns the magnitude.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBadAmount, data)
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
