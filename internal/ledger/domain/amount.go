package domain

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountSyntax    = errors.New("amount_syntax")
	ErrAmountNegative  = errors.New("amount_negative")
	ErrAmountPrecision = errors.New("amount_precision")
	ErrAmountOverflow  = errors.New("amount_overflow")
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a decimal string into minor units at the given scale.
// Group separators ("," and "_") and surrounding spaces are ignored.
func ParseAmount(raw string, scale int32) (int64, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.NewReplacer(",", "", "_", "", " ", "").Replace(clean)
	if clean == "" {
		return 0, ErrAmountSyntax
	}
	value, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, ErrAmountSyntax
	}
	if value.IsNegative() {
		return 0, ErrAmountNegative
	}
	minor := value.Shift(scale)
	if !minor.IsInteger() {
		return 0, ErrAmountPrecision
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, ErrAmountOverflow
	}
	return minor.IntPart(), nil
}

// ToDecimal converts minor units back to a major-unit decimal.
func ToDecimal(minor int64, scale int32) decimal.Decimal {
	return decimal.New(minor, -scale)
}

// FormatAmount renders minor units with exactly scale fraction digits.
func FormatAmount(minor int64, scale int32) string {
	return ToDecimal(minor, scale).StringFixed(scale)
}
