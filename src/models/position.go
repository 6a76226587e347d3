package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Position is a filled, still-open exposure. Commission holds the entry
// commission; the exit commission is charged against Profit when the
// position is closed.
type Position struct {
	ID             uuid.UUID `json:"id"`
	Side           OrderSide `json:"side"`
	EntryPrice     float64   `json:"entry_price"`
	Volume         float64   `json:"volume"`
	Commission     float64   `json:"commission"`
	FloatingProfit float64   `json:"floating_profit"`
	Closed         bool      `json:"closed"`
	ExitPrice      *float64  `json:"exit_price,omitempty"`
	Profit         float64   `json:"profit"`
}

// UpdateFloatingProfit recomputes the unrealized P&L at the given price and
// returns it.
func (p *Position) UpdateFloatingProfit(currentPrice float64) float64 {
	if p.Closed {
		return 0
	}

	if p.Side == OrderSideBuy {
		p.FloatingProfit = (currentPrice - p.EntryPrice) * p.Volume
	} else {
		p.FloatingProfit = (p.EntryPrice - currentPrice) * p.Volume
	}

	return p.FloatingProfit
}

// Exposure is the cash the position reserves against free margin.
func (p *Position) Exposure(currentPrice float64) float64 {
	if p.Closed {
		return 0
	}

	return p.Volume * currentPrice
}

// Close realizes the position at exitPrice. exitCommission is the commission
// charged on the closing fill and is deducted from the realized profit.
func (p *Position) Close(exitPrice float64, exitCommission float64) error {
	if p.Closed {
		return fmt.Errorf("Position.Close: %w", PositionClosedErr)
	}

	if exitPrice <= 0 {
		return fmt.Errorf("Position.Close: %w: %v", InvalidPriceErr, exitPrice)
	}

	if p.Side == OrderSideBuy {
		p.Profit = (exitPrice-p.EntryPrice)*p.Volume - exitCommission
	} else {
		p.Profit = (p.EntryPrice-exitPrice)*p.Volume - exitCommission
	}

	p.Closed = true
	p.ExitPrice = &exitPrice
	p.FloatingProfit = 0

	return nil
}

func NewPosition(side OrderSide, entryPrice float64, volume float64, commission float64) *Position {
	return &Position{
		ID:         uuid.New(),
		Side:       side,
		EntryPrice: entryPrice,
		Volume:     volume,
		Commission: commission,
	}
}
