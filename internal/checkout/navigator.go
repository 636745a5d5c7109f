package checkout

import "stayease/internal/model"

// Routes the orchestrator hands the view layer.
const (
	RouteCatalog      = "/"
	RouteConfirmation = "/payment-success"
	RouteFailure      = "/payment-failure"
	RouteBookings     = "/my-bookings"
)

// Confirmation is what the confirmation view receives.
type Confirmation struct {
	Payment model.PaymentResult `json:"payment"`
	Booking model.Booking       `json:"booking"`
	Draft   model.BookingDraft  `json:"bookingDetails"`
}

// Failure is what the failure view receives. Draft lets the guest retry.
type Failure struct {
	Message   string             `json:"error"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Draft     model.BookingDraft `json:"bookingDetails"`
}

// Navigator is told where the view layer should go next.
type Navigator interface {
	ToCatalog()
	ToConfirmation(c Confirmation)
	ToFailure(f Failure)
	ToBookings(paymentID int64)
}

// Route is the last navigation issued by an orchestrator.
type Route struct {
	Path         string        `json:"redirect"`
	PaymentID    int64         `json:"paymentId,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Failure      *Failure      `json:"failure,omitempty"`
}

type nopNavigator struct{}

func (nopNavigator) ToCatalog()                  {}
func (nopNavigator) ToConfirmation(Confirmation) {}
func (nopNavigator) ToFailure(Failure)           {}
func (nopNavigator) ToBookings(int64)            {}
