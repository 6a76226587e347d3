package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder(t *testing.T) {
	t.Run("fill stamps execution fields", func(t *testing.T) {
		order := NewOrder(OrderSideBuy, 0.99, 2.0)

		err := order.Fill(0.99, 17, 0.001)
		assert.NoError(t, err)
		assert.True(t, order.Executed)
		assert.Equal(t, 0.99, *order.ExecutionPrice)
		assert.Equal(t, int64(17), *order.ExecutionTick)
		assert.InDelta(t, 2.0*0.99*0.001, order.Commission, 1e-12)
	})

	t.Run("double fill is an error", func(t *testing.T) {
		order := NewOrder(OrderSideSell, 1.05, 1.0)

		assert.NoError(t, order.Fill(1.05, 1, 0))
		assert.ErrorIs(t, order.Fill(1.05, 2, 0), OrderAlreadyExecutedErr)
	})

	t.Run("fill rejects non-positive price", func(t *testing.T) {
		order := NewOrder(OrderSideBuy, 1.0, 1.0)

		assert.Error(t, order.Fill(0, 1, 0))
		assert.False(t, order.Executed)
	})

	t.Run("required margin", func(t *testing.T) {
		order := NewOrder(OrderSideBuy, 2.0, 3.0)
		assert.Equal(t, 6.0, order.RequiredMargin())
	})
}

func TestOrderSide(t *testing.T) {
	t.Run("opposite", func(t *testing.T) {
		assert.Equal(t, OrderSideSell, OrderSideBuy.Opposite())
		assert.Equal(t, OrderSideBuy, OrderSideSell.Opposite())
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, OrderSideBuy.Validate())
		assert.NoError(t, OrderSideSell.Validate())
		assert.ErrorIs(t, OrderSide("hold").Validate(), InvalidOrderSideErr)
	})
}
