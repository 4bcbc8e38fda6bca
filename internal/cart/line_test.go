package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPrefersVariantPrice(t *testing.T) {
	lines := []Line{
		{ID: "a", Product: &ProductRef{ID: "P1", UnitPrice: decimal.RequireFromString("10")}, Quantity: 2,
			Variant: &VariantRef{ID: "V1", PriceAdjustment: decimal.NewNullDecimal(decimal.RequireFromString("7.25"))}},
		{ID: "b", Product: &ProductRef{ID: "P2", UnitPrice: decimal.RequireFromString("3.10")}, Quantity: 3},
		{ID: "c", Product: &ProductRef{ID: "P3", UnitPrice: decimal.RequireFromString("1")}, Quantity: 1,
			Variant: &VariantRef{ID: "V9"}},
	}

	assertDecimal(t, "24.8", Total(lines))
	assert.Equal(t, 6, itemCount(lines))
	assert.True(t, Total(nil).IsZero())
}

func TestDecodeLinesRejectsGarbage(t *testing.T) {
	_, err := decodeLines(`[{"id":1}`)
	require.Error(t, err)

	lines, err := decodeLines("   ")
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = decodeLines("null")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestEncodeLinesWritesEmptyList(t *testing.T) {
	payload, err := encodeLines(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)
}
