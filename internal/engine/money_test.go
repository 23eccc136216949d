package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20", "$20.00"},
		{"0", "$0.00"},
		{"4.995", "$5.00"},
		{"0.005", "$0.01"},
		{"0.004", "$0.00"},
		{"1234.5", "$1234.50"},
		{"-2.345", "-$2.35"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(dec(tt.in)), "FormatMoney(%s)", tt.in)
	}
}

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	assertDecimal(t, "0.03", RoundMoney(dec("0.025")))
	assertDecimal(t, "0.02", RoundMoney(dec("0.0249")))
	assertDecimal(t, "-0.03", RoundMoney(dec("-0.025")))
	assertDecimal(t, "10", RoundMoney(dec("10")))
}
