package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -2.35, Round2(-2.345))
	assert.Equal(t, 10.0, Round2(10))
}

func TestFormatCash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$1,234.50", FormatCash(1234.5, "USD"))
	assert.Equal(t, "$10,100.00", FormatCash(10100, ""))
	assert.Equal(t, "-$60.00", FormatCash(-60, "USD"))
}

func TestParseQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10", 10, false},
		{" 7 ", 7, false},
		{"5.0", 5, false},
		{"1e3", 1000, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"1.5", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	got, err := ParseAmount("250.75")
	require.NoError(t, err)
	assert.Equal(t, 250.75, got)

	for _, in := range []string{"0", "-1", "NaN", "+Inf", "x"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}

	assert.Error(t, ValidAmount(math.Inf(-1)))
}
