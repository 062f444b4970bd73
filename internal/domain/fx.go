package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeCurrency trims and upper-cases code, which must be exactly three ASCII
// letters. Codes outside ISO 4217 (BTC, in-house points) are accepted.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", validationError("currency", "must be a 3-letter currency code")
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return "", validationError("currency", "must be a 3-letter currency code")
		}
	}
	return c, nil
}

// ResolveRate returns the rate that converts source into base.
//
// Same currency always resolves to exactly 1 and the supplied rate is ignored.
// Otherwise the caller must supply a positive rate; rates are never fetched.
func ResolveRate(source, base string, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if strings.EqualFold(source, base) {
		return decimal.NewFromInt(1), nil
	}
	if supplied == nil {
		return decimal.Zero, &Error{Kind: KindMissingRate, Field: "fx_rate_to_base", Message: "fx_rate_to_base is required"}
	}
	if !supplied.IsPositive() {
		return decimal.Zero, &Error{Kind: KindMissingRate, Field: "fx_rate_to_base", Message: "fx_rate_to_base must be > 0"}
	}
	return *supplied, nil
}

// BaseAmount converts amount with rate. No intermediate rounding.
func BaseAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}
