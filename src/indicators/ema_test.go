package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEma(t *testing.T) {
	t.Run("undefined before period samples", func(t *testing.T) {
		ema := NewEma(3)

		ok, _ := ema.Update(1.0)
		assert.False(t, ok)
		assert.False(t, ema.Ready())

		ok, _ = ema.Update(2.0)
		assert.False(t, ok)
		assert.False(t, ema.Ready())
	})

	t.Run("seeds with simple mean", func(t *testing.T) {
		ema := NewEma(3)

		ema.Update(1.0)
		ema.Update(2.0)
		ok, value := ema.Update(3.0)

		assert.True(t, ok)
		assert.True(t, ema.Ready())
		assert.InDelta(t, 2.0, value, 1e-9)
	})

	t.Run("exponential smoothing after seed", func(t *testing.T) {
		ema := NewEma(3)

		ema.Update(1.0)
		ema.Update(2.0)
		ema.Update(3.0)

		// k = 2/(3+1) = 0.5
		ok, value := ema.Update(4.0)
		assert.True(t, ok)
		assert.InDelta(t, 3.0, value, 1e-9)
		assert.InDelta(t, 3.0, ema.Value(), 1e-9)
	})

	t.Run("flat history seeds flat", func(t *testing.T) {
		ema := NewEma(3)

		ema.Update(1.0)
		ema.Update(1.0)
		ok, value := ema.Update(1.0)

		assert.True(t, ok)
		assert.InDelta(t, 1.0, value, 1e-9)
	})

	t.Run("state round trip", func(t *testing.T) {
		ema := NewEma(3)
		ema.Update(1.0)
		ema.Update(2.0)
		ema.Update(3.0)

		restored := NewEmaFromState(ema.State())

		assert.True(t, restored.Ready())
		assert.InDelta(t, ema.Value(), restored.Value(), 1e-9)

		_, a := ema.Update(5.0)
		_, b := restored.Update(5.0)
		assert.InDelta(t, a, b, 1e-9)
	})
}
