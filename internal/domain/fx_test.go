package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

func TestNormalizeCurrency(t *testing.T) {
	got, err := domain.NormalizeCurrency(" jpy ")
	require.NoError(t, err)
	assert.Equal(t, "JPY", got)

	for in, want := range map[string]string{"btc": "BTC", "abc": "ABC", "QQQ": "QQQ"} {
		got, err := domain.NormalizeCurrency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"dollars", "US", "U$D", "12A", "ÉUR", ""} {
		_, err := domain.NormalizeCurrency(in)
		assert.ErrorIs(t, err, domain.ErrValidation, in)
	}
}

func TestResolveRate_SameCurrencyIgnoresSuppliedRate(t *testing.T) {
	supplied := dec("150")

	rate, err := domain.ResolveRate("usd", "USD", &supplied)

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)), "rate=%s", rate)
}

func TestResolveRate_ForeignCurrencyRequiresPositiveRate(t *testing.T) {
	_, err := domain.ResolveRate("JPY", "USD", nil)
	assert.ErrorIs(t, err, domain.ErrMissingRate)

	zero := decimal.Zero
	_, err = domain.ResolveRate("JPY", "USD", &zero)
	assert.ErrorIs(t, err, domain.ErrMissingRate)

	neg := dec("-2")
	_, err = domain.ResolveRate("JPY", "USD", &neg)
	assert.ErrorIs(t, err, domain.ErrMissingRate)

	ok := dec("0.0067")
	rate, err := domain.ResolveRate("JPY", "USD", &ok)
	require.NoError(t, err)
	assert.True(t, rate.Equal(ok))
}

func TestBaseAmount_IsExact(t *testing.T) {
	cases := []struct {
		amount, rate, want string
	}{
		{"10", "150", "1500"},
		{"100", "32.25806451612903225806451613", "3225.806451612903225806451613"},
		{"0.1", "0.2", "0.02"},
		{"19.99", "1", "19.99"},
	}
	for _, tc := range cases {
		got := domain.BaseAmount(dec(tc.amount), dec(tc.rate))
		assert.True(t, got.Equal(dec(tc.want)), "%s x %s = %s, want %s", tc.amount, tc.rate, got, tc.want)
	}
}
