package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed number of fractional digits kept for every
// monetary amount. It matches the NUMERIC(19,4) destination columns.
const MoneyScale int32 = 4

// ErrEmptyAmount is returned when a money or rate string is blank.
var ErrEmptyAmount = errors.New("amount is empty")

// Money is a value object representing a fixed-point monetary amount.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money rounded to MoneyScale
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(MoneyScale)}
}

// ParseMoney parses a human-authored currency cell such as "$1,234.50",
// " 12.5 " or "(3.00)". Parenthesised amounts are negative.
func ParseMoney(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Money{}, ErrEmptyAmount
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid currency value %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return NewMoney(d), nil
}

// ParseRate parses a percentage or fraction into a decimal fraction.
// "5%" and "5" both become 0.05; "0.05" stays 0.05.
func ParseRate(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate value %q: %w", raw, err)
	}
	if percent || d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate cannot be negative: %q", raw)
	}
	return d, nil
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// String returns the amount with MoneyScale fractional digits
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}
