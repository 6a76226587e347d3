package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPriceDistributionData(t *testing.T) {
	t.Run("nil until two samples exist", func(t *testing.T) {
		m := newTestManager(t, DefaultConfig())

		assert.Nil(t, m.GetPriceDistributionData(10))

		m.CheckOrders(1.0)
		assert.Nil(t, m.GetPriceDistributionData(10))
	})

	t.Run("buckets cover the full history", func(t *testing.T) {
		m := newTestManager(t, DefaultConfig())

		prices := []float64{0.9, 0.95, 1.0, 1.0, 1.05, 1.1, 1.02, 0.98}
		for _, price := range prices {
			m.CheckOrders(price)
		}

		dist := m.GetPriceDistributionData(5)
		require.NotNil(t, dist)

		assert.Len(t, dist.BinEdges, 6)
		assert.Len(t, dist.Counts, 5)
		assert.Len(t, dist.Gaussian, 5)

		total := 0
		for _, count := range dist.Counts {
			total += count
		}
		assert.Equal(t, len(prices), total)

		assert.Equal(t, 0.9, dist.BinEdges[0])
		assert.InDelta(t, 1.1, dist.BinEdges[5], 1e-9)
		assert.Equal(t, 0.98, dist.CurrentPrice)
		assert.Greater(t, dist.StdDev, 0.0)
	})

	t.Run("flat history degenerates to one bucket", func(t *testing.T) {
		m := newTestManager(t, DefaultConfig())

		m.CheckOrders(1.0)
		m.CheckOrders(1.0)

		dist := m.GetPriceDistributionData(4)
		require.NotNil(t, dist)

		assert.Equal(t, 2, dist.Counts[0])
	})

	t.Run("non-positive bins falls back to the default", func(t *testing.T) {
		m := newTestManager(t, DefaultConfig())

		m.CheckOrders(1.0)
		m.CheckOrders(1.1)

		dist := m.GetPriceDistributionData(0)
		require.NotNil(t, dist)
		assert.Len(t, dist.Counts, 20)
	})
}
