package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func brl(s string) Money {
	return NewMoneyBRL(decimal.RequireFromString(s))
}

func TestMoney_Rounded(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"25.505", "25.51"},
		{"25.504", "25.50"},
		{"0.005", "0.01"},
		{"10", "10.00"},
		{"-1.005", "-1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, brl(tt.in).Rounded().StringFixed(2))
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	assert.Equal(t, "10.30", brl("10.10").Plus(brl("0.20")).StringFixed(2))
	assert.Equal(t, "29.97", brl("9.99").Times(3).StringFixed(2))
	assert.True(t, brl("1.50").Equal(brl("1.5")))
	assert.True(t, brl("0.7").Times(0).IsZero())
	assert.True(t, Cents(1999).Equal(brl("19.99")))
}

func TestMoney_WithinLimit(t *testing.T) {
	assert.Equal(t, "9999999999.99", MaxAmount.StringFixed(2))
	assert.True(t, brl("9999999999.99").WithinLimit())
	assert.True(t, brl("9999999999.994").WithinLimit(), "rounds down to the limit")
	assert.False(t, brl("9999999999.995").WithinLimit())
	assert.False(t, brl("10000000000").WithinLimit())
	assert.True(t, Cents(0).WithinLimit())
}

func TestSum(t *testing.T) {
	t.Run("cart example", func(t *testing.T) {
		total := Sum(brl("10.00").Times(2), brl("5.50").Times(1))
		assert.Equal(t, "25.50", total.StringFixed(2))
	})

	t.Run("rounds once at the end", func(t *testing.T) {
		// 0.335 + 0.335 rounds to 0.67, not 0.34 + 0.34
		assert.Equal(t, "0.67", Sum(brl("0.335"), brl("0.335")).StringFixed(2))
	})

	t.Run("no lines", func(t *testing.T) {
		assert.True(t, Sum().IsZero())
	})

	t.Run("repeated additions do not drift", func(t *testing.T) {
		lines := make([]Money, 0, 1000)
		for range 1000 {
			lines = append(lines, brl("0.10"))
		}
		assert.Equal(t, "100.00", Sum(lines...).StringFixed(2))
	})
}

func TestSum_MatchesIntegerCents(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "lines")
		var wantCents int64
		lines := make([]Money, 0, n)
		for range n {
			cents := rapid.Int64Range(1, 10_000_000).Draw(t, "cents")
			qty := rapid.IntRange(1, 500).Draw(t, "qty")
			wantCents += cents * int64(qty)
			lines = append(lines, Cents(cents).Times(qty))
		}

		if got, want := Sum(lines...), Cents(wantCents); !got.Equal(want) {
			t.Fatalf("sum %s != %s", got, want)
		}
	})
}

func TestMoney_Format(t *testing.T) {
	m := brl("9.9")
	assert.Equal(t, "9.90 BRL", m.String())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `"9.90"`, string(data))
}
