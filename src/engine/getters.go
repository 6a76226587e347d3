package engine

import "github.com/gridlabs/gridtrader/src/models"

func (m *OrderManager) Balance() float64 {
	return m.balance
}

// Profit is the realized profit over all closed positions.
func (m *OrderManager) Profit() float64 {
	return m.profit
}

func (m *OrderManager) FloatingProfit() float64 {
	return m.floatingProfit
}

// TotalProfit is realized plus unrealized P&L.
func (m *OrderManager) TotalProfit() float64 {
	return m.profit + m.floatingProfit
}

func (m *OrderManager) FreeMargin() float64 {
	return m.freeMargin
}

func (m *OrderManager) CurrentPrice() float64 {
	return m.currentPrice
}

func (m *OrderManager) Tick() int64 {
	return m.tick
}

// Ema reports the current EMA value and whether enough price history exists
// for it to be defined.
func (m *OrderManager) Ema() (float64, bool) {
	return m.ema.Value(), m.ema.Ready()
}

func (m *OrderManager) Orders() []*models.Order {
	return append([]*models.Order(nil), m.orders...)
}

func (m *OrderManager) OrderHistory() []*models.Order {
	return append([]*models.Order(nil), m.orderHistory...)
}

func (m *OrderManager) OpenPositions() []*models.Position {
	return append([]*models.Position(nil), m.positions...)
}

func (m *OrderManager) ClosedPositions() []*models.Position {
	return append([]*models.Position(nil), m.closedPositions...)
}

func (m *OrderManager) PriceHistory() []float64 {
	return append([]float64(nil), m.priceHistory...)
}

func (m *OrderManager) GridStepPercent() float64 {
	return m.gridStepPercent
}

// ProfitSummary aggregates the closed positions the way the positions report
// does: gross profit, entry commission paid, and the net of the two.
type ProfitSummary struct {
	GrossProfit     float64 `json:"gross_profit"`
	TotalCommission float64 `json:"total_commission"`
	NetProfit       float64 `json:"net_profit"`
}

func (m *OrderManager) GetProfitSummary() ProfitSummary {
	summary := ProfitSummary{}

	for _, position := range m.closedPositions {
		summary.GrossProfit += position.Profit
		summary.TotalCommission += position.Commission
	}

	summary.NetProfit = summary.GrossProfit - summary.TotalCommission

	return summary
}
