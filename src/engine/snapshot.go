package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gridlabs/gridtrader/src/indicators"
	"github.com/gridlabs/gridtrader/src/models"
)

// Snapshot is the full serializable state of the engine. Restoring one and
// resuming with the same price sequence reproduces an uninterrupted run.
type Snapshot struct {
	Config Config `json:"config"`

	Tick           int64   `json:"tick"`
	Balance        float64 `json:"balance"`
	FreeMargin     float64 `json:"free_margin"`
	FloatingProfit float64 `json:"floating_profit"`
	Profit         float64 `json:"profit"`
	CurrentPrice   float64 `json:"current_price"`
	LastPrice      float64 `json:"last_price"`

	GridStepPercent  float64            `json:"grid_step_percent"`
	ConsecutiveBuys  int                `json:"consecutive_buys"`
	ConsecutiveSells int                `json:"consecutive_sells"`
	RecentFills      []models.OrderSide `json:"recent_fills,omitempty"`
	Visits           map[int]int        `json:"visits,omitempty"`

	PriceHistory []float64           `json:"price_history"`
	Ema          indicators.EmaState `json:"ema"`

	Orders          []*models.Order    `json:"orders"`
	Positions       []*models.Position `json:"positions"`
	ClosedPositions []*models.Position `json:"closed_positions"`
	OrderHistory    []*models.Order    `json:"order_history"`
}

func (m *OrderManager) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		Config:           m.cfg,
		Tick:             m.tick,
		Balance:          m.balance,
		FreeMargin:       m.freeMargin,
		FloatingProfit:   m.floatingProfit,
		Profit:           m.profit,
		CurrentPrice:     m.currentPrice,
		LastPrice:        m.lastPrice,
		GridStepPercent:  m.gridStepPercent,
		ConsecutiveBuys:  m.consecutiveBuys,
		ConsecutiveSells: m.consecutiveSells,
		RecentFills:      append([]models.OrderSide(nil), m.recentFills...),
		Visits:           make(map[int]int, len(m.visits)),
		PriceHistory:     append([]float64(nil), m.priceHistory...),
		Ema:              m.ema.State(),
		Orders:           copyOrders(m.orders),
		Positions:        copyPositions(m.positions),
		ClosedPositions:  copyPositions(m.closedPositions),
		OrderHistory:     copyOrders(m.orderHistory),
	}

	for bucket, count := range m.visits {
		snapshot.Visits[bucket] = count
	}

	return snapshot
}

// RestoreOrderManager rebuilds an engine from a snapshot.
func RestoreOrderManager(snapshot *Snapshot) (*OrderManager, error) {
	cfg := snapshot.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("RestoreOrderManager: %w", err)
	}

	m := &OrderManager{
		cfg:              cfg,
		balance:          snapshot.Balance,
		freeMargin:       snapshot.FreeMargin,
		floatingProfit:   snapshot.FloatingProfit,
		profit:           snapshot.Profit,
		currentPrice:     snapshot.CurrentPrice,
		lastPrice:        snapshot.LastPrice,
		tick:             snapshot.Tick,
		gridStepPercent:  snapshot.GridStepPercent,
		consecutiveBuys:  snapshot.ConsecutiveBuys,
		consecutiveSells: snapshot.ConsecutiveSells,
		recentFills:      append([]models.OrderSide(nil), snapshot.RecentFills...),
		visits:           make(map[int]int, len(snapshot.Visits)),
		priceHistory:     append([]float64(nil), snapshot.PriceHistory...),
		ema:              indicators.NewEmaFromState(snapshot.Ema),
		orders:           copyOrders(snapshot.Orders),
		positions:        copyPositions(snapshot.Positions),
		closedPositions:  copyPositions(snapshot.ClosedPositions),
		orderHistory:     copyOrders(snapshot.OrderHistory),
	}

	if m.gridStepPercent <= 0 {
		m.gridStepPercent = cfg.GridStepPercent
	}

	for bucket, count := range snapshot.Visits {
		m.visits[bucket] = count
	}

	return m, nil
}

func (s *Snapshot) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("Snapshot.Write: encode: %w", err)
	}

	return nil
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("ReadSnapshot: decode: %w", err)
	}

	return &snapshot, nil
}

func copyOrders(orders []*models.Order) []*models.Order {
	out := make([]*models.Order, 0, len(orders))
	for _, order := range orders {
		clone := *order
		if order.ExecutionPrice != nil {
			price := *order.ExecutionPrice
			clone.ExecutionPrice = &price
		}
		if order.ExecutionTick != nil {
			tick := *order.ExecutionTick
			clone.ExecutionTick = &tick
		}
		out = append(out, &clone)
	}

	return out
}

func copyPositions(positions []*models.Position) []*models.Position {
	out := make([]*models.Position, 0, len(positions))
	for _, position := range positions {
		clone := *position
		if position.ExitPrice != nil {
			price := *position.ExitPrice
			clone.ExitPrice = &price
		}
		out = append(out, &clone)
	}

	return out
}
