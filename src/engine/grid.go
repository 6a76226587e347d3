package engine

import (
	"math"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/models"
)

type gridLevel struct {
	side   models.OrderSide
	price  float64
	volume float64
}

// UpdateGrid recomputes the price grid around the EMA and replaces every
// resting order with it. A no-op until the EMA is defined.
//
// Boundaries start at the maximum reach of the grid, are clamped to the
// range prices have actually visited, and are re-widened so each side keeps
// at least MinOrders steps of room. Levels are split between the two sides
// in proportion to each side's distance from the EMA, and per-level volume
// grows geometrically outward, biased toward the underrepresented fill side
// and toward rarely visited prices. If the grid cannot fit within free
// margin, its volumes are scaled down proportionally rather than rejected.
func (m *OrderManager) UpdateGrid() {
	if !m.ema.Ready() || len(m.priceHistory) < m.cfg.EmaPeriod {
		return
	}

	currentPrice := m.currentPrice
	if currentPrice <= 0 {
		return
	}

	ema := m.ema.Value()

	minStep := currentPrice * m.gridStepPercent / 100.0
	upper := currentPrice + minStep*float64(m.cfg.MaxOrders)
	lower := currentPrice - minStep*float64(m.cfg.MaxOrders)

	histMin, err := stats.Min(m.priceHistory)
	if err != nil {
		return
	}
	histMax, err := stats.Max(m.priceHistory)
	if err != nil {
		return
	}

	if upper > histMax {
		upper = histMax
	}
	if lower < histMin {
		lower = histMin
	}

	span := minStep * float64(m.cfg.MinOrders)
	if upper-currentPrice < span {
		upper = currentPrice + span
	}
	if currentPrice-lower < span {
		lower = currentPrice - span
	}
	if lower < minStep {
		lower = minStep
	}
	if lower >= currentPrice {
		return
	}

	// Asymmetric allocation: the side farther from the EMA gets more
	// levels.
	distBuy := math.Abs(ema - lower)
	distSell := math.Abs(upper - ema)

	totalLevels := 2 * m.cfg.MaxOrders
	buyLevels := totalLevels / 2
	if distBuy+distSell > 0 {
		buyLevels = int(math.Round(float64(totalLevels) * distBuy / (distBuy + distSell)))
	}
	if buyLevels < 1 {
		buyLevels = 1
	}
	if buyLevels > totalLevels-1 {
		buyLevels = totalLevels - 1
	}
	sellLevels := totalLevels - buyLevels

	m.CalculateFreeMargin()

	baseVolume := m.freeMargin * m.cfg.BaseVolumeFraction / currentPrice
	if baseVolume <= 0 {
		m.ClearOrders()
		log.Warn("OrderManager.UpdateGrid: no free margin, grid not placed")
		return
	}

	levels := make([]gridLevel, 0, totalLevels)

	buyStep := (currentPrice - lower) / float64(buyLevels)
	buyCoefficient := m.distributionCoefficient(models.OrderSideBuy)
	for i := 0; i < buyLevels; i++ {
		price := currentPrice - buyStep*float64(i+1)
		volume := baseVolume * math.Pow(m.cfg.VolumeGrowthFactor, float64(i)) * buyCoefficient * m.frequencyCoefficient(price)
		levels = append(levels, gridLevel{side: models.OrderSideBuy, price: price, volume: volume})
	}

	sellStep := (upper - currentPrice) / float64(sellLevels)
	sellCoefficient := m.distributionCoefficient(models.OrderSideSell)
	for i := 0; i < sellLevels; i++ {
		price := currentPrice + sellStep*float64(i+1)
		volume := baseVolume * math.Pow(m.cfg.VolumeGrowthFactor, float64(i)) * sellCoefficient * m.frequencyCoefficient(price)
		levels = append(levels, gridLevel{side: models.OrderSideSell, price: price, volume: volume})
	}

	// Shrink the whole grid proportionally when it cannot fit within free
	// margin. Never reject it outright.
	required := 0.0
	for _, level := range levels {
		required += level.price * level.volume * (1.0 + m.cfg.CommissionRate)
	}

	scale := 1.0
	if required > m.freeMargin {
		scale = m.freeMargin / required * 0.999
		for i := range levels {
			levels[i].volume *= scale
		}
	}

	m.ClearOrders()

	for _, level := range levels {
		if level.price <= 0 || level.volume <= 0 {
			continue
		}
		m.PlaceOrder(level.side, level.price, level.volume)
	}

	log.WithFields(log.Fields{
		"buy_levels":  buyLevels,
		"sell_levels": sellLevels,
		"lower":       lower,
		"upper":       upper,
		"scale":       scale,
	}).Info("rebuilt order grid")

	eventpubsub.Publish("OrderManager", eventpubsub.GridRebuiltEvent, eventpubsub.GridRebuiltEventData{
		Tick:       m.tick,
		BuyLevels:  buyLevels,
		SellLevels: sellLevels,
		ScaledBy:   scale,
	})
}

// InitializeGrid clears the book and seeds a fresh grid. Used for resets;
// a no-op before the EMA exists.
func (m *OrderManager) InitializeGrid() {
	m.ClearOrders()
	m.UpdateGrid()
}

// distributionCoefficient biases volume toward the side that has filled less
// over the trailing window. Clamped to [0.5, 2].
func (m *OrderManager) distributionCoefficient(side models.OrderSide) float64 {
	buys, sells := 0, 0
	for _, fill := range m.recentFills {
		if fill == models.OrderSideBuy {
			buys++
		} else {
			sells++
		}
	}

	var coefficient float64
	if side == models.OrderSideBuy {
		coefficient = float64(sells+1) / float64(buys+1)
	} else {
		coefficient = float64(buys+1) / float64(sells+1)
	}

	return clamp(coefficient, 0.5, 2.0)
}

// frequencyCoefficient biases volume toward price buckets the simulation has
// rarely visited. Clamped to [0.5, 2].
func (m *OrderManager) frequencyCoefficient(price float64) float64 {
	if price <= 0 || len(m.visits) == 0 {
		return 1.0
	}

	total := 0
	for _, count := range m.visits {
		total += count
	}
	average := float64(total) / float64(len(m.visits))

	visits := float64(m.visits[m.bucket(price)])

	return clamp((average+1.0)/(visits+1.0), 0.5, 2.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
