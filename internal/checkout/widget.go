package checkout

import (
	"context"
	"strconv"
)

// Prefill is the guest contact data shown by the widget.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

func (p Prefill) withDefaults() Prefill {
	if p.Name == "" {
		p.Name = "Customer Name"
	}
	if p.Email == "" {
		p.Email = "customer@example.com"
	}
	if p.Contact == "" {
		p.Contact = "9999999999"
	}
	return p
}

// WidgetOptions are the order fields the checkout widget is opened with.
// Amount is in the currency's minor unit.
type WidgetOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	ThemeColor  string            `json:"themeColor,omitempty"`
}

func notes(userID int64) map[string]string {
	return map[string]string{
		"bookingId": "new",
		"userId":    strconv.FormatInt(userID, 10),
	}
}

// GatewayResponse is the raw success payload the widget returns.
type GatewayResponse struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Callbacks receive the widget outcome. Exactly one is invoked per open.
type Callbacks interface {
	PaymentSucceeded(ctx context.Context, resp GatewayResponse) (Confirmation, error)
	PaymentFailed(ctx context.Context, cause error) error
	PaymentCancelled(ctx context.Context) error
}

// Widget is the opaque third-party checkout. Open reports its outcome
// through cb rather than a return value.
type Widget interface {
	Open(ctx context.Context, opts WidgetOptions, cb Callbacks) error
}
