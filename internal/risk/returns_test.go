package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	s, err := Returns(priceSeries("X", 100, 101, 99, 100, 102, 98))
	require.NoError(t, err)

	want := []float64{0.01, -0.0198019802, 0.0101010101, 0.02, -0.0392156863}
	require.Equal(t, 5, s.Len())
	for i, w := range want {
		assert.InDelta(t, w, s.Values[i], 1e-9, "return %d", i)
	}
	// first price produces no entry, dates start at the second observation
	assert.Equal(t, baseDate.AddDate(0, 0, 1), s.Dates[0])
}

func TestReturns_GapsAreMissingNotZero(t *testing.T) {
	s, err := Returns(priceSeries("X", 100, nan(), 102, 103))
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.True(t, IsMissing(s.Values[0]))
	assert.True(t, IsMissing(s.Values[1]))
	assert.InDelta(t, 103.0/102-1, s.Values[2], 1e-12)
	assert.Equal(t, 1, s.Count())
}

func TestReturns_InsufficientData(t *testing.T) {
	for _, ps := range []PriceSeries{
		{Symbol: "EMPTY"},
		priceSeries("ONE", 100),
	} {
		_, err := Returns(ps)
		assert.ErrorIs(t, err, ErrInsufficientData, ps.Symbol)
	}
}

func TestPriceChanges(t *testing.T) {
	s, err := PriceChanges(priceSeries("X", 100, 101, 99))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -2}, s.Values, 1e-12)
}
