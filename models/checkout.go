package models

import "time"

// ProductDescriptor is what the buyer is paying for. Amount is in the
// currency's minor unit (cents for usd).
type ProductDescriptor struct {
	Name     string
	Amount   int64
	Currency string
	PriceID  string // existing Stripe Price; replaces Name/Amount when set
}

// CheckoutRequest is the body of POST /api/payments/create-checkout-session.
type CheckoutRequest struct {
	ProductName string `json:"productName"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PriceID     string `json:"priceId"`
}

func (r CheckoutRequest) Descriptor() ProductDescriptor {
	return ProductDescriptor{
		Name:     r.ProductName,
		Amount:   r.Amount,
		Currency: r.Currency,
		PriceID:  r.PriceID,
	}
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Confirmation states shown to the buyer after the redirect back.
const (
	StateSuccess    = "success"
	StateProcessing = "processing"
	StateError      = "error"
)

// SessionSummary is the normalized view of a provider checkout session.
type SessionSummary struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	AmountTotal   int64     `json:"amountTotal"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	State         string    `json:"state"`
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}
