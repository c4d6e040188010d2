package cli

import (
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"tradesim/internal/models"
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// FormatMoney formats amount in currency, e.g. "$100,600.00". The amount
// is rounded to the currency's minor unit only for display.
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(currency)
	c := money.GetCurrency(code)
	if c == nil {
		code = money.USD
		c = money.GetCurrency(code)
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		// beyond int64 minor units; ungrouped but exact
		sign := ""
		if amount.IsNegative() {
			sign = "-"
		}
		return sign + c.Grapheme + amount.Abs().StringFixed(int32(c.Fraction))
	}
	return money.New(minor.IntPart(), code).Display()
}

// FormatPnL formats P&L with an explicit sign for gains.
func FormatPnL(pnl decimal.Decimal, currency string) string {
	formatted := FormatMoney(pnl, currency)
	if pnl.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats an already-scaled percentage, e.g. "66.7%".
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}

// FormatOptional renders an optional amount, "-" when absent.
func FormatOptional(v models.OptionalDecimal) string {
	return v.String()
}

// FormatDateTime formats a timestamp for tables, "-" when unknown.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02-Jan-2006 15:04")
}

// TruncateString truncates a string to maxLen runes, adding "..." if needed.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
