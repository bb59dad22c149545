package models

import "time"

// PaymentEvent is published to SNS when a checkout webhook arrives. It is a
// notification for downstream consumers, nothing stores it here.
type PaymentEvent struct {
	Type          string    `json:"type"`     // e.g. "checkout.session.completed"
	EventID       string    `json:"event_id"` // Stripe event id
	SessionID     string    `json:"session_id"`
	PaymentStatus string    `json:"payment_status"`
	Amount        int64     `json:"amount"`   // smallest currency unit
	Currency      string    `json:"currency"` // "usd", "eur"
	CustomerEmail string    `json:"customer_email,omitempty"`
	Timestamp     time.Time `json:"timestamp"` // UTC event time
}
