package models

import "time"

// Event types published to the checkout events topic.
const (
	EventOrderCreated    = "order.created"
	EventPaymentCaptured = "payment.captured"
)

// Event is the wire contract for checkout lifecycle events.
type Event struct {
	EventID   string         `json:"event_id"`
	OrderID   string         `json:"order_id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}
