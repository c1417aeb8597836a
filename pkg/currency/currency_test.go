package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want decimal.Decimal
	}{
		{"1.234,56", dec("1234.56")},
		{"€ 1.234,56", dec("1234.56")},
		{"100", dec("100")},
		{"40,00", dec("40")},
		{"abc", decimal.Zero},
		{"", decimal.Zero},
		{"-5", decimal.Zero},
		{"1,2,3", decimal.Zero},
		{"9999999999", dec("999999999")},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.True(t, tc.want.Equal(Parse(tc.in)),
				"Parse(%q) = %s, want %s", tc.in, Parse(tc.in), tc.want)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "€1.234,56", Format(dec("1234.56")))
	assert.Equal(t, "€0,00", Format(decimal.Zero))
	assert.Equal(t, "€999.999.999,00", Format(dec("999999999")))
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "40", "100", "1234.56", "999999999"} {
		d := dec(s)
		got := Parse(Format(d))
		assert.True(t, d.Equal(got), "round trip of %s gave %s", d, got)
	}
}

func TestValidateAmount(t *testing.T) {
	require.NoError(t, ValidateAmount(dec("999999999")))
	require.NoError(t, ValidateAmount(decimal.Zero))
	assert.ErrorIs(t, ValidateAmount(dec("-1")), ErrAmountNegative)
	assert.ErrorIs(t, ValidateAmount(dec("1000000000")), ErrAmountTooLarge)
}
