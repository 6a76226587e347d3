package eventpubsub

import "github.com/gridlabs/gridtrader/src/models"

type OrderEvent struct {
	Tick   int64         `json:"tick"`
	Order  *models.Order `json:"order"`
	Reason string        `json:"reason,omitempty"`
}

type PositionEvent struct {
	Tick     int64            `json:"tick"`
	Position *models.Position `json:"position"`
}

type GridRebuiltEventData struct {
	Tick       int64   `json:"tick"`
	BuyLevels  int     `json:"buy_levels"`
	SellLevels int     `json:"sell_levels"`
	ScaledBy   float64 `json:"scaled_by"`
}

type AccountWarningEvent struct {
	Tick           int64   `json:"tick"`
	Balance        float64 `json:"balance"`
	FreeMargin     float64 `json:"free_margin"`
	FloatingProfit float64 `json:"floating_profit"`
}
