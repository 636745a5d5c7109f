package model

// PaymentStatus mirrors the payment collaborator's status enum.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

// Verified reports whether a booking may be created for the payment. An
// empty status on a 2xx verify response counts as completed.
func (s PaymentStatus) Verified() bool {
	return s == "" || s == PaymentCompleted
}

// CreateOrderRequest asks the payment collaborator for a gateway order.
type CreateOrderRequest struct {
	BookingID int64   `json:"bookingId"`
	UserID    int64   `json:"userId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Receipt   string  `json:"receipt"`
}

// Order is the created gateway order handed to the checkout widget.
type Order struct {
	PaymentID       int64   `json:"paymentId,omitempty"`
	RazorpayOrderID string  `json:"razorpayOrderId"`
	RazorpayKeyID   string  `json:"razorpayKeyId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

// VerifyRequest forwards the raw gateway callback fields.
type VerifyRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// PaymentResult is produced by verification and consumed once to create a booking.
type PaymentResult struct {
	PaymentID         int64         `json:"paymentId"`
	BookingID         int64         `json:"bookingId,omitempty"`
	OrderID           string        `json:"orderId,omitempty"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency,omitempty"`
	Status            PaymentStatus `json:"status"`
	RazorpayPaymentID string        `json:"razorpayPaymentId,omitempty"`
	Message           string        `json:"message,omitempty"`
}

// Payment is a stored payment record as listed by the payment collaborator.
type Payment struct {
	ID                int64         `json:"paymentId"`
	BookingID         int64         `json:"bookingId"`
	UserID            int64         `json:"userId"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	Status            PaymentStatus `json:"status"`
	RazorpayOrderID   string        `json:"razorpayOrderId"`
	RazorpayPaymentID string        `json:"razorpayPaymentId,omitempty"`
	Receipt           string        `json:"receipt,omitempty"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
}
