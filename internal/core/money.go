// Package core provides money parsing and handling utilities.
//
// This file contains the amount checks applied to user input and the
// normalization to exactly two fractional digits used for storage.
package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Non-negative decimal with at most two fractional digits: "0.01", "12", "12.3", "12.30".
var amount2dpRe = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

// Same shape without the precision limit, used to tell the two failures apart.
var amountAnyDpRe = regexp.MustCompile(`^\d+\.\d+$`)

var displayPrinter = message.NewPrinter(language.English)

// IsAmount2dp reports whether s is a non-negative decimal with at most two
// fractional digits. Surrounding whitespace is ignored.
func IsAmount2dp(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !amount2dpRe.MatchString(s) {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// ParseAmount validates s and returns it rounded to two decimals.
//
// Examples:
//
//	ParseAmount("24.5")   -> 24.50, nil
//	ParseAmount("12.345") -> ErrAmountPrecision
//	ParseAmount("0")      -> ErrAmountNotPositive
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !IsAmount2dp(s) {
		if amountAnyDpRe.MatchString(s) {
			return decimal.Zero, ErrAmountPrecision
		}
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return d.Round(2), nil
}

// NormalizeAmount renders a valid amount string with exactly two decimals.
// NormalizeAmount(NormalizeAmount(s)) == NormalizeAmount(s) for every valid s.
func NormalizeAmount(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsAmount2dp(s) {
		return "", ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", ErrInvalidAmount
	}
	return d.StringFixed(2), nil
}

// FormatCurrency renders an amount for display, e.g. "$1,234.50".
// Digits come from the exact decimal; only the integer part is grouped.
func FormatCurrency(symbol string, amount decimal.Decimal) string {
	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(2), ".")
	// beyond int64 the digits are printed ungrouped
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = displayPrinter.Sprintf("%d", n)
	}
	s := symbol + whole + "." + frac
	if amount.IsNegative() {
		return "-" + s
	}
	return s
}

// FormatSigned prefixes the amount with + for income and - for expenses.
func FormatSigned(symbol string, kind Kind, amount decimal.Decimal) string {
	if kind == KindIncome {
		return "+" + FormatCurrency(symbol, amount.Abs())
	}
	return "-" + FormatCurrency(symbol, amount.Abs())
}
