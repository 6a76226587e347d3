package pricing

import (
	"math/rand"
	"sync"
)

// RandomWalk produces synthetic prices by adding a bounded uniform
// perturbation to the previous price. Prices never go negative.
type RandomWalk struct {
	mutex      sync.Mutex
	volatility float64
	rng        *rand.Rand
}

func (w *RandomWalk) Step(currentPrice float64) float64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	delta := (w.rng.Float64()*2.0 - 1.0) * w.volatility
	next := currentPrice + delta
	if next < 0 {
		next = 0
	}

	return next
}

func (w *RandomWalk) Volatility() float64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.volatility
}

func (w *RandomWalk) SetVolatility(volatility float64) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if volatility > 0 {
		w.volatility = volatility
	}
}

func NewRandomWalk(volatility float64, seed int64) *RandomWalk {
	return &RandomWalk{
		volatility: volatility,
		rng:        rand.New(rand.NewSource(seed)),
	}
}
