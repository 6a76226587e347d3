package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlabs/gridtrader/src/models"
)

func newTestManager(t *testing.T, cfg Config) *OrderManager {
	t.Helper()

	m, err := NewOrderManager(cfg)
	require.NoError(t, err)

	return m
}

func commissionFreeConfig() Config {
	cfg := DefaultConfig()
	cfg.CommissionRate = 0
	cfg.EmaPeriod = 3

	return cfg
}

// warmUp feeds a flat price history so the EMA seeds at exactly that price.
func warmUp(m *OrderManager, price float64, ticks int) {
	for i := 0; i < ticks; i++ {
		m.CheckOrders(price)
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("rejects non-positive price and volume", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		assert.False(t, m.PlaceOrder(models.OrderSideBuy, 0, 1))
		assert.False(t, m.PlaceOrder(models.OrderSideBuy, -1, 1))
		assert.False(t, m.PlaceOrder(models.OrderSideBuy, 1, 0))
		assert.Len(t, m.Orders(), 0)
	})

	t.Run("rejects invalid side", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		assert.False(t, m.PlaceOrder(models.OrderSide("hold"), 1, 1))
		assert.Len(t, m.Orders(), 0)
	})

	t.Run("reserves margin on success", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		assert.True(t, m.PlaceOrder(models.OrderSideBuy, 10, 5))
		assert.Len(t, m.Orders(), 1)
		assert.InDelta(t, 10000-50, m.FreeMargin(), 1e-9)
	})

	t.Run("never succeeds when margin is insufficient", func(t *testing.T) {
		cfg := commissionFreeConfig()
		cfg.InitialBalance = 100
		m := newTestManager(t, cfg)

		// Consume the free margin exactly.
		assert.True(t, m.PlaceOrder(models.OrderSideBuy, 10, 10))
		assert.InDelta(t, 0, m.FreeMargin(), 1e-9)

		// With zero free margin every placement is a no-op.
		assert.False(t, m.PlaceOrder(models.OrderSideBuy, 1, 1))
		assert.False(t, m.PlaceOrder(models.OrderSideSell, 1, 0.001))
		assert.Len(t, m.Orders(), 1)
		assert.GreaterOrEqual(t, m.FreeMargin(), 0.0)
	})

	t.Run("commission estimate counts against margin", func(t *testing.T) {
		cfg := commissionFreeConfig()
		cfg.InitialBalance = 100
		cfg.CommissionRate = 0.01
		m := newTestManager(t, cfg)

		// 10*10 margin + 1 commission estimate exceeds the balance of 100.
		assert.False(t, m.PlaceOrder(models.OrderSideBuy, 10, 10))
		assert.Len(t, m.Orders(), 0)
	})
}

func TestCheckOrders(t *testing.T) {
	t.Run("commission-free round trip scenario", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		warmUp(m, 1.0, 3)
		ema, ok := m.Ema()
		require.True(t, ok)
		assert.InDelta(t, 1.0, ema, 1e-9)

		// Drop the auto-seeded grid so only the scripted orders fill.
		m.ClearOrders()
		require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.99, 1.0))

		m.CheckOrders(0.98)

		positions := m.OpenPositions()
		require.Len(t, positions, 1)
		assert.Equal(t, models.OrderSideBuy, positions[0].Side)
		assert.InDelta(t, 0.99, positions[0].EntryPrice, 1e-9)

		// No commission and the position is still open: balance unchanged.
		assert.InDelta(t, 10000, m.Balance(), 1e-9)

		history := m.OrderHistory()
		require.Len(t, history, 1)
		assert.True(t, history[0].Executed)
		assert.InDelta(t, 0.99, *history[0].ExecutionPrice, 1e-9)

		m.ClearOrders()
		require.True(t, m.PlaceOrder(models.OrderSideSell, 1.05, 1.0))

		m.CheckOrders(1.06)

		assert.Len(t, m.OpenPositions(), 0)
		closed := m.ClosedPositions()
		require.Len(t, closed, 1)
		assert.InDelta(t, (1.05-0.99)*1.0, closed[0].Profit, 1e-9)
		assert.InDelta(t, 10000+(1.05-0.99)*1.0, m.Balance(), 1e-9)
		assert.InDelta(t, m.Profit(), (1.05-0.99)*1.0, 1e-9)
	})

	t.Run("orders fill at their own limit price", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		warmUp(m, 1.0, 3)
		m.ClearOrders()
		require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.99, 1.0))

		// Price gaps well past the limit. The fill must still happen at
		// 0.99, never at the worse 0.95.
		m.CheckOrders(0.95)

		history := m.OrderHistory()
		require.Len(t, history, 1)
		assert.InDelta(t, 0.99, *history[0].ExecutionPrice, 1e-9)

		positions := m.OpenPositions()
		require.Len(t, positions, 1)
		assert.InDelta(t, 0.99, positions[0].EntryPrice, 1e-9)
	})

	t.Run("orders outside the crossed interval do not fill", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		warmUp(m, 1.0, 3)
		m.ClearOrders()
		require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.90, 1.0))

		m.CheckOrders(0.95)

		assert.Len(t, m.OrderHistory(), 0)
		assert.Len(t, m.OpenPositions(), 0)
	})

	t.Run("replacement orders wait for the next tick", func(t *testing.T) {
		m := newTestManager(t, commissionFreeConfig())

		warmUp(m, 1.0, 3)
		m.ClearOrders()
		require.True(t, m.PlaceOrder(models.OrderSideSell, 1.05, 1.0))

		// The sell at 1.05 fills and re-seeds a buy at 1.05*0.99 ≈ 1.0395,
		// which lies inside the crossed interval but must not fill until
		// the next tick.
		m.CheckOrders(1.06)

		assert.Len(t, m.OrderHistory(), 1)
	})
}

func TestPairingRule(t *testing.T) {
	cfg := commissionFreeConfig()
	m := newTestManager(t, cfg)

	warmUp(m, 1.0, 3)
	m.ClearOrders()

	// Far-away guard orders keep both sides represented so the grid does
	// not auto-rebuild mid-script.
	require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.5, 0.1))
	require.True(t, m.PlaceOrder(models.OrderSideSell, 2.0, 0.1))

	require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.99, 1.0))
	require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.98, 1.0))

	m.CheckOrders(0.97)

	// Two buy fills with no short to close: two longs opened, one per fill.
	positions := m.OpenPositions()
	require.Len(t, positions, 2)
	for _, position := range positions {
		assert.Equal(t, models.OrderSideBuy, position.Side)
	}

	// Consecutive same-side fills widen the replacement step: the first
	// sell re-seeds 1% above its fill, the second 2% above.
	var replacementPrices []float64
	for _, order := range m.Orders() {
		if order.Side == models.OrderSideSell && order.Price < 1.5 {
			replacementPrices = append(replacementPrices, order.Price)
		}
	}
	require.Len(t, replacementPrices, 2)
	assert.InDelta(t, 0.99*1.01, replacementPrices[0], 1e-9)
	assert.InDelta(t, 0.98*1.02, replacementPrices[1], 1e-9)

	// Crossing back up fills both replacement sells; each closes one long.
	m.CheckOrders(1.01)

	assert.Len(t, m.OpenPositions(), 0)
	assert.Len(t, m.ClosedPositions(), 2)
	assert.Len(t, m.OrderHistory(), 4)
}

func TestFreeMarginIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmaPeriod = 3
	m := newTestManager(t, cfg)

	prices := []float64{1.0, 1.0, 1.0, 0.99, 1.01, 0.97, 1.02, 0.95, 1.05, 1.0, 0.98, 1.03}
	for _, price := range prices {
		m.CheckOrders(price)

		freeMargin := m.CalculateFreeMargin()

		exposure := 0.0
		for _, position := range m.OpenPositions() {
			exposure += position.Volume * m.CurrentPrice()
		}

		assert.InDelta(t, m.Balance()-exposure, freeMargin, 1e-9)
	}
}

func TestLongAndShortNeverCoexist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmaPeriod = 3
	m := newTestManager(t, cfg)

	prices := []float64{1.0, 1.0, 1.0, 0.98, 1.02, 0.96, 1.04, 0.94, 1.06, 1.0, 0.97, 1.03, 0.95}
	for _, price := range prices {
		m.CheckOrders(price)

		longs, shorts := 0, 0
		for _, position := range m.OpenPositions() {
			if position.Side == models.OrderSideBuy {
				longs++
			} else {
				shorts++
			}
		}

		assert.False(t, longs > 0 && shorts > 0, "long and short positions coexist")
	}
}

func TestSetGridStepPercent(t *testing.T) {
	m := newTestManager(t, commissionFreeConfig())

	m.SetGridStepPercent(2.5)
	assert.Equal(t, 2.5, m.GridStepPercent())

	m.SetGridStepPercent(-1)
	assert.Equal(t, 2.5, m.GridStepPercent())
}

func TestGetProfitSummary(t *testing.T) {
	m := newTestManager(t, commissionFreeConfig())

	warmUp(m, 1.0, 3)
	m.ClearOrders()
	require.True(t, m.PlaceOrder(models.OrderSideBuy, 0.99, 1.0))
	m.CheckOrders(0.98)
	m.ClearOrders()
	require.True(t, m.PlaceOrder(models.OrderSideSell, 1.05, 1.0))
	m.CheckOrders(1.06)

	summary := m.GetProfitSummary()
	assert.InDelta(t, 0.06, summary.GrossProfit, 1e-9)
	assert.InDelta(t, 0, summary.TotalCommission, 1e-9)
	assert.InDelta(t, 0.06, summary.NetProfit, 1e-9)
}
