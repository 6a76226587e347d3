package engine

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/indicators"
	"github.com/gridlabs/gridtrader/src/models"
)

// OrderManager owns the order book of a grid strategy: it fills resting
// orders against price crossings, pairs fills into positions, re-seeds the
// grid after each fill, and keeps the account numbers honest by recomputing
// balance and free margin from scratch instead of drifting them
// incrementally.
//
// It is single-owner: all mutation must come from one goroutine (the
// simulator tick loop serializes external callers).
type OrderManager struct {
	cfg Config

	balance        float64
	freeMargin     float64
	floatingProfit float64
	profit         float64

	currentPrice float64
	lastPrice    float64
	tick         int64

	orders          []*models.Order
	positions       []*models.Position
	closedPositions []*models.Position
	orderHistory    []*models.Order

	priceHistory []float64
	ema          *indicators.Ema

	gridStepPercent  float64
	consecutiveBuys  int
	consecutiveSells int
	recentFills      []models.OrderSide
	visits           map[int]int
}

func NewOrderManager(cfg Config) (*OrderManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewOrderManager: %w", err)
	}

	return &OrderManager{
		cfg:             cfg,
		balance:         cfg.InitialBalance,
		freeMargin:      cfg.InitialBalance,
		ema:             indicators.NewEma(cfg.EmaPeriod),
		gridStepPercent: cfg.GridStepPercent,
		visits:          make(map[int]int),
	}, nil
}

// CheckOrders advances the engine by one tick: it records the price, updates
// the EMA and the accounting, fills every resting order whose limit price was
// crossed since the previous tick, and rebuilds the grid when it has thinned
// out.
func (m *OrderManager) CheckOrders(currentPrice float64) {
	m.tick++
	if m.tick == 1 {
		m.lastPrice = currentPrice
	}

	m.priceHistory = append(m.priceHistory, currentPrice)
	m.ema.Update(currentPrice)
	m.recordVisit(currentPrice)
	m.currentPrice = currentPrice

	m.CalculateFloatingProfit(currentPrice)
	m.CalculateFreeMargin()

	// Fills are evaluated over the full interval crossed since the last
	// tick, so intrabar touches count, not just tick-exact ones. The
	// candidate list is snapshotted up front: replacement orders placed
	// during execution must wait for the next tick.
	lo := math.Min(m.lastPrice, currentPrice)
	hi := math.Max(m.lastPrice, currentPrice)

	candidates := make([]*models.Order, len(m.orders))
	copy(candidates, m.orders)

	for _, order := range candidates {
		if order.Executed {
			continue
		}

		if order.Price >= lo && order.Price <= hi {
			m.executeOrder(order, order.Price)
		}
	}

	m.CalculateFloatingProfit(currentPrice)
	m.CalculateFreeMargin()

	if m.gridNeedsRebuild() {
		m.UpdateGrid()
	}

	m.lastPrice = currentPrice
}

// PlaceOrder appends a resting limit order if the account can cover its
// margin plus the estimated commission. Rejection is silent: the caller gets
// false and the engine state is unchanged.
func (m *OrderManager) PlaceOrder(side models.OrderSide, price float64, volume float64) bool {
	if err := side.Validate(); err != nil {
		log.Warnf("OrderManager.PlaceOrder: %v", err)
		return false
	}

	if price <= 0 || volume <= 0 {
		log.Warnf("OrderManager.PlaceOrder: rejected %v order: price=%v volume=%v", side, price, volume)
		return false
	}

	requiredMargin := price * volume
	commissionEstimate := requiredMargin * m.cfg.CommissionRate

	if m.freeMargin < requiredMargin+commissionEstimate {
		log.WithFields(log.Fields{
			"side":        side,
			"price":       price,
			"volume":      volume,
			"required":    requiredMargin + commissionEstimate,
			"free_margin": m.freeMargin,
		}).Warn("OrderManager.PlaceOrder: insufficient free margin")

		eventpubsub.Publish("OrderManager", eventpubsub.OrderRejectedEvent, eventpubsub.OrderEvent{
			Tick:   m.tick,
			Order:  models.NewOrder(side, price, volume),
			Reason: models.InsufficientMarginErr.Error(),
		})

		return false
	}

	order := models.NewOrder(side, price, volume)
	m.orders = append(m.orders, order)
	m.freeMargin -= requiredMargin + commissionEstimate

	log.Debugf("placed %v order at %.8f for %.8f units", side, price, volume)

	eventpubsub.Publish("OrderManager", eventpubsub.OrderPlacedEvent, eventpubsub.OrderEvent{
		Tick:  m.tick,
		Order: order,
	})

	return true
}

// executeOrder fills a resting order at its own limit price, applies the
// pairing rule, recomputes the account from scratch, and immediately places
// the opposite-side replacement that keeps the grid self-replenishing.
func (m *OrderManager) executeOrder(order *models.Order, executionPrice float64) {
	if err := order.Fill(executionPrice, m.tick, m.cfg.CommissionRate); err != nil {
		log.Errorf("OrderManager.executeOrder: %v", err)
		return
	}

	if order.Side == models.OrderSideBuy {
		m.consecutiveBuys++
		m.consecutiveSells = 0
	} else {
		m.consecutiveSells++
		m.consecutiveBuys = 0
	}
	m.recordFill(order.Side)

	// Pairing rule: a fill closes an open position of the opposite side if
	// one exists, otherwise it opens a new position of its own side. Long
	// and short positions never coexist.
	if position := m.openPosition(order.Side.Opposite()); position != nil {
		if err := position.Close(executionPrice, order.Commission); err != nil {
			log.Errorf("OrderManager.executeOrder: close position: %v", err)
		} else {
			order.Profit = position.Profit
			m.removePosition(position)
			m.closedPositions = append(m.closedPositions, position)

			eventpubsub.Publish("OrderManager", eventpubsub.PositionClosedEvent, eventpubsub.PositionEvent{
				Tick:     m.tick,
				Position: position,
			})
		}
	} else {
		position := models.NewPosition(order.Side, executionPrice, order.Volume, order.Commission)
		m.positions = append(m.positions, position)

		eventpubsub.Publish("OrderManager", eventpubsub.PositionOpenedEvent, eventpubsub.PositionEvent{
			Tick:     m.tick,
			Position: position,
		})
	}

	m.recomputeBalance()
	m.CalculateFreeMargin()

	// Replacement order on the far side of the fill, spaced by the dynamic
	// grid step: above a buy fill, below a sell fill.
	step := m.dynamicGridStep(order.Side)
	if order.Side == models.OrderSideBuy {
		m.PlaceOrder(models.OrderSideSell, executionPrice*(1.0+step/100.0), order.Volume)
	} else {
		m.PlaceOrder(models.OrderSideBuy, executionPrice*(1.0-step/100.0), order.Volume)
	}

	m.orderHistory = append(m.orderHistory, order)
	m.removeOrder(order)

	log.WithFields(log.Fields{
		"side":    order.Side,
		"price":   executionPrice,
		"volume":  order.Volume,
		"balance": m.balance,
		"profit":  m.profit,
	}).Info("executed order")

	eventpubsub.Publish("OrderManager", eventpubsub.OrderFilledEvent, eventpubsub.OrderEvent{
		Tick:  m.tick,
		Order: order,
	})
}

// recomputeBalance rebuilds the realized balance from first principles each
// time: initial balance, plus the profit of every closed position, minus the
// entry commission of every position ever opened. Recomputing instead of
// incrementing keeps repeated fills from drifting the account.
func (m *OrderManager) recomputeBalance() {
	closedProfit := 0.0
	entryCommission := 0.0

	for _, position := range m.closedPositions {
		closedProfit += position.Profit
		entryCommission += position.Commission
	}

	for _, position := range m.positions {
		entryCommission += position.Commission
	}

	m.profit = closedProfit
	m.balance = m.cfg.InitialBalance + closedProfit - entryCommission
}

// CalculateFreeMargin recomputes free margin as balance minus the exposure of
// every open position at the current price, and returns it.
func (m *OrderManager) CalculateFreeMargin() float64 {
	exposure := 0.0
	for _, position := range m.positions {
		exposure += position.Exposure(m.currentPrice)
	}

	m.freeMargin = m.balance - exposure

	return m.freeMargin
}

// CalculateFloatingProfit recomputes the unrealized P&L of all open
// positions at the given price, and returns the sum.
func (m *OrderManager) CalculateFloatingProfit(currentPrice float64) float64 {
	total := 0.0
	for _, position := range m.positions {
		total += position.UpdateFloatingProfit(currentPrice)
	}

	m.floatingProfit = total

	return total
}

// dynamicGridStep widens the base step by 2^(n-1) after n consecutive fills
// on the given side, capped by MaxGridStepMultiplier. The first fill of a
// run uses the base step; the cap keeps a sustained trend from pushing
// replacement orders out of reach.
func (m *OrderManager) dynamicGridStep(side models.OrderSide) float64 {
	consecutive := m.consecutiveSells
	if side == models.OrderSideBuy {
		consecutive = m.consecutiveBuys
	}

	if consecutive < 1 {
		consecutive = 1
	}

	multiplier := math.Pow(2, float64(consecutive-1))
	if multiplier > m.cfg.MaxGridStepMultiplier {
		multiplier = m.cfg.MaxGridStepMultiplier
	}

	return m.gridStepPercent * multiplier
}

func (m *OrderManager) gridNeedsRebuild() bool {
	total := len(m.orders)
	if total == 0 {
		return m.ema.Ready()
	}

	buys := 0
	for _, order := range m.orders {
		if order.Side == models.OrderSideBuy {
			buys++
		}
	}
	sells := total - buys

	threshold := m.cfg.MinGridCoverage * float64(total)

	return float64(buys) <= threshold || float64(sells) <= threshold
}

func (m *OrderManager) openPosition(side models.OrderSide) *models.Position {
	for _, position := range m.positions {
		if !position.Closed && position.Side == side {
			return position
		}
	}

	return nil
}

func (m *OrderManager) removePosition(target *models.Position) {
	for i, position := range m.positions {
		if position == target {
			m.positions = append(m.positions[:i], m.positions[i+1:]...)
			return
		}
	}
}

func (m *OrderManager) removeOrder(target *models.Order) {
	for i, order := range m.orders {
		if order == target {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return
		}
	}
}

// ClearOrders drops every resting order. Executed orders live in the order
// history and are untouched.
func (m *OrderManager) ClearOrders() {
	m.orders = nil

	log.Debug("cleared all resting orders")
}

// SetGridStepPercent applies a settings change to the base grid step.
// Non-positive values are ignored.
func (m *OrderManager) SetGridStepPercent(gridStepPercent float64) {
	if gridStepPercent <= 0 {
		log.Warnf("OrderManager.SetGridStepPercent: ignoring %v", gridStepPercent)
		return
	}

	m.gridStepPercent = gridStepPercent
}

func (m *OrderManager) recordFill(side models.OrderSide) {
	m.recentFills = append(m.recentFills, side)
	if len(m.recentFills) > m.cfg.FillWindow {
		m.recentFills = m.recentFills[len(m.recentFills)-m.cfg.FillWindow:]
	}
}

// recordVisit counts how often each price bucket has been seen. Buckets are
// geometric so the bucket width stays a fixed percentage of the price.
func (m *OrderManager) recordVisit(price float64) {
	if price <= 0 {
		return
	}

	m.visits[m.bucket(price)]++
}

func (m *OrderManager) bucket(price float64) int {
	return int(math.Floor(math.Log(price) / math.Log(1.0+m.cfg.BucketSizePercent/100.0)))
}
