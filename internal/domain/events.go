package domain

// Queue lifecycle event types published to the notifications fanout.
const (
	EventOrderQueued    = "order.queued"
	EventOrderClaimed   = "order.claimed"
	EventUnitDispensed  = "unit.dispensed"
	EventOrderCompleted = "order.completed"
)

// QueueEvent is the wire shape of a lifecycle notification. Informational
// only; the worker protocol never consumes these.
type QueueEvent struct {
	Type       string `json:"type"`
	OrderID    string `json:"order_id"`
	Username   string `json:"username,omitempty"`
	DrinkID    string `json:"drink_id,omitempty"`
	DrinkName  string `json:"drink_name,omitempty"`
	Remaining  int    `json:"remaining_items"`
	EstSeconds int    `json:"est_seconds,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
