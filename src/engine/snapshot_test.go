package engine

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmaPeriod = 3

	original := newTestManager(t, cfg)

	warmup := []float64{1.0, 1.0, 1.0, 0.98, 1.01, 0.97, 1.02, 0.95, 1.05, 1.0}
	for _, price := range warmup {
		original.CheckOrders(price)
	}

	var buf bytes.Buffer
	require.NoError(t, original.Snapshot().Write(&buf))

	snapshot, err := ReadSnapshot(&buf)
	require.NoError(t, err)

	restored, err := RestoreOrderManager(snapshot)
	require.NoError(t, err)

	assert.Equal(t, original.Tick(), restored.Tick())
	assert.Equal(t, original.Balance(), restored.Balance())
	assert.Equal(t, original.Profit(), restored.Profit())
	assert.Equal(t, original.FreeMargin(), restored.FreeMargin())
	assert.Len(t, restored.Orders(), len(original.Orders()))
	assert.Len(t, restored.OpenPositions(), len(original.OpenPositions()))
	assert.Len(t, restored.ClosedPositions(), len(original.ClosedPositions()))
	assert.Len(t, restored.OrderHistory(), len(original.OrderHistory()))

	// Resuming both engines with the same tail of prices must keep them in
	// lockstep: the run is indistinguishable from an uninterrupted one.
	tail := []float64{0.99, 1.03, 0.96, 1.0, 1.05, 0.97, 1.02}
	for _, price := range tail {
		original.CheckOrders(price)
		restored.CheckOrders(price)

		assert.Equal(t, original.Tick(), restored.Tick())
		assert.InDelta(t, original.Balance(), restored.Balance(), 1e-12)
		assert.InDelta(t, original.Profit(), restored.Profit(), 1e-12)
		assert.InDelta(t, original.FloatingProfit(), restored.FloatingProfit(), 1e-12)
		assert.InDelta(t, original.FreeMargin(), restored.FreeMargin(), 1e-12)
		assert.Equal(t, orderBook(original), orderBook(restored))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmaPeriod = 3
	m := newTestManager(t, cfg)

	for _, price := range []float64{0.95, 1.05, 1.0, 0.98} {
		m.CheckOrders(price)
	}

	snapshot := m.Snapshot()
	ordersBefore := len(snapshot.Orders)
	balanceBefore := snapshot.Balance

	// Mutating the live engine must not reach into the snapshot.
	for _, price := range []float64{0.9, 1.1, 0.85, 1.15} {
		m.CheckOrders(price)
	}

	assert.Len(t, snapshot.Orders, ordersBefore)
	assert.Equal(t, balanceBefore, snapshot.Balance)
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewBufferString("not json"))
	assert.Error(t, err)
}

func orderBook(m *OrderManager) []float64 {
	prices := make([]float64, 0)
	for _, order := range m.Orders() {
		prices = append(prices, order.Price)
	}
	sort.Float64s(prices)

	return prices
}
