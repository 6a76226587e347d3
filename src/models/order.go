package models

import (
	"fmt"

	"github.com/google/uuid"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (s OrderSide) Validate() error {
	switch s {
	case OrderSideBuy, OrderSideSell:
		return nil
	default:
		return fmt.Errorf("%w: %v", InvalidOrderSideErr, s)
	}
}

func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}

	return OrderSideBuy
}

// Order is a resting limit order. It is mutated once, at fill time, and is
// immutable after that.
type Order struct {
	ID             uuid.UUID `json:"id" csv:"id"`
	Side           OrderSide `json:"side" csv:"side"`
	Price          float64   `json:"price" csv:"price"`
	Volume         float64   `json:"volume" csv:"volume"`
	Executed       bool      `json:"executed" csv:"executed"`
	ExecutionPrice *float64  `json:"execution_price,omitempty" csv:"execution_price"`
	ExecutionTick  *int64    `json:"execution_tick,omitempty" csv:"execution_tick"`
	Commission     float64   `json:"commission" csv:"commission"`
	Profit         float64   `json:"profit" csv:"profit"`
}

// RequiredMargin is the cash reserved when the order is placed.
func (o *Order) RequiredMargin() float64 {
	return o.Price * o.Volume
}

func (o *Order) Fill(executionPrice float64, tick int64, commissionRate float64) error {
	if o.Executed {
		return fmt.Errorf("Order.Fill: %w", OrderAlreadyExecutedErr)
	}

	if executionPrice <= 0 {
		return fmt.Errorf("Order.Fill: execution price must be greater than 0, got %v", executionPrice)
	}

	o.Executed = true
	o.ExecutionPrice = &executionPrice
	o.ExecutionTick = &tick
	o.Commission = o.Volume * executionPrice * commissionRate

	return nil
}

func NewOrder(side OrderSide, price float64, volume float64) *Order {
	return &Order{
		ID:     uuid.New(),
		Side:   side,
		Price:  price,
		Volume: volume,
	}
}
