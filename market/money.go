package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO code accounts are denominated in.
const DefaultCurrency = "USD"

// Round2 rounds x half away from zero to two decimal places. Stored values
// keep full precision; rounding only happens at the display boundary.
func Round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// FormatCash renders an amount for display, e.g. "$1,234.50".
func FormatCash(amount float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return money.NewFromFloat(Round2(amount), currency).Display()
}

// ParseQuantity parses a share count. Only finite, whole, positive values
// are accepted; "1.5", "NaN" and "-3" are rejected.
func ParseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		if q <= 0 {
			return 0, fmt.Errorf("quantity must be positive, got %d", q)
		}
		return q, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity %q is not finite", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	if f <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %s", s)
	}
	if f > math.MaxInt64/2 {
		return 0, fmt.Errorf("quantity %q is too large", s)
	}
	return int64(f), nil
}

// ParseAmount parses a positive, finite cash amount.
func ParseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", s)
	}
	if err := ValidAmount(f); err != nil {
		return 0, err
	}
	return f, nil
}

// ValidAmount reports whether f can be credited to an account.
func ValidAmount(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("amount %v is not finite", f)
	}
	if f <= 0 {
		return fmt.Errorf("amount must be positive, got %v", f)
	}
	return nil
}
