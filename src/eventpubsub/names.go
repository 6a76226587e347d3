package eventpubsub

type EventName string

const (
	OrderPlacedEvent         EventName = "order:placed"
	OrderRejectedEvent       EventName = "order:rejected"
	OrderFilledEvent         EventName = "order:filled"
	PositionOpenedEvent      EventName = "position:opened"
	PositionClosedEvent      EventName = "position:closed"
	GridRebuiltEvent         EventName = "grid:rebuilt"
	MarginWarningEvent       EventName = "account:margin-warning"
	FloatingLossWarningEvent EventName = "account:floating-loss-warning"
	TickProcessedEvent       EventName = "simulator:tick"
)
