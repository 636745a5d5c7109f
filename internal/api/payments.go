package api

import (
	"context"
	"fmt"

	"stayease/internal/model"
)

// Payments is the payment collaborator client.
type Payments struct {
	t *Transport
}

// NewPayments constructs a payment client over the given transport.
func NewPayments(t *Transport) *Payments {
	return &Payments{t: t}
}

// CreateOrder creates a gateway order for the checkout widget.
func (p *Payments) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.Order, error) {
	var order model.Order
	if err := p.t.postJSON(ctx, "create_order", "/create-order", req, &order, nil); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// Verify checks the gateway signature of a completed widget payment.
func (p *Payments) Verify(ctx context.Context, req model.VerifyRequest) (model.PaymentResult, error) {
	var result model.PaymentResult
	if err := p.t.postJSON(ctx, "verify", "/verify", req, &result, nil); err != nil {
		return model.PaymentResult{}, err
	}
	return result, nil
}

// Payment returns one payment record.
func (p *Payments) Payment(ctx context.Context, paymentID int64) (model.Payment, error) {
	var payment model.Payment
	if err := p.t.getJSON(ctx, "payment", fmt.Sprintf("/%d", paymentID), &payment); err != nil {
		return model.Payment{}, err
	}
	return payment, nil
}

// PaymentsByBooking lists payments attached to a booking id.
func (p *Payments) PaymentsByBooking(ctx context.Context, bookingID int64) ([]model.Payment, error) {
	var payments []model.Payment
	if err := p.t.getJSON(ctx, "payments_by_booking", fmt.Sprintf("/booking/%d", bookingID), &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// PaymentsByUser lists payments made by a user.
func (p *Payments) PaymentsByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	var payments []model.Payment
	if err := p.t.getJSON(ctx, "payments_by_user", fmt.Sprintf("/user/%d", userID), &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
