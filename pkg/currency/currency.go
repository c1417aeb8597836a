// Package currency parses and formats euro amounts with two-decimal
// semantics and enforces the ledger's amount bounds.
package currency

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single voice may carry.
const MaxAmount = 999_999_999

var (
	ErrAmountNegative = errors.New("amount_negative")
	ErrAmountTooLarge = errors.New("amount_too_large")

	maxAmount = decimal.NewFromInt(MaxAmount)

	cleaner = strings.NewReplacer(
		"€", "",
		" ", "",
		" ", "",
		".", "",
	)
)

// Parse reads a localized euro string. Currency symbols, whitespace and
// thousands dots are stripped; the comma is the decimal separator. A
// string that does not parse yields zero. The result is clamped to
// [0, MaxAmount].
func Parse(text string) decimal.Decimal {
	cleaned := cleaner.Replace(strings.TrimSpace(text))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return Clamp(d)
}

// it-IT euro rendering: dot thousands, comma decimals. The library
// default for EUR renders US-style, which would break the Parse/Format
// inverse.
var eurFormatter = money.NewFormatter(2, ",", ".", "€", "$1")

// Format renders an amount as a two-decimal euro string with dot
// thousands separators and a comma decimal separator, so that
// Parse(Format(x)) == x for any in-bounds two-decimal amount.
func Format(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return eurFormatter.Format(cents)
}

// Clamp forces an amount into [0, MaxAmount].
func Clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(maxAmount) {
		return maxAmount
	}
	return d
}

// ValidateAmount rejects amounts outside [0, MaxAmount]. Unlike Clamp it
// reports the violation instead of silently correcting it; the ledger
// uses it on writes, while Clamp serves parsing of free-form input.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrAmountNegative
	}
	if d.GreaterThan(maxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}
