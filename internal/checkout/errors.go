package checkout

import "fmt"

// PaymentError is a failed order creation, a widget failure or
// cancellation, or a rejected verification. No money has moved.
type PaymentError struct {
	Stage     string
	Message   string
	Cancelled bool
	Err       error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("payment %s: %s", e.Stage, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// PostPaymentBookingError means the payment was verified but the booking
// was not created. It needs support reconciliation and is never retried.
type PostPaymentBookingError struct {
	PaymentID int64
	Message   string
	Err       error
}

func (e *PostPaymentBookingError) Error() string {
	return fmt.Sprintf("payment %d succeeded but booking failed: %s", e.PaymentID, e.Message)
}

func (e *PostPaymentBookingError) Unwrap() error { return e.Err }
