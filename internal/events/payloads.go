package events

import "stayease/internal/model"

// SessionPayload accompanies SessionChanged. Role and UserID are empty after logout.
type SessionPayload struct {
	Authenticated bool
	Role          model.Role
	UserID        int64
}

// RoomsPayload accompanies CatalogRooms.
type RoomsPayload struct {
	HotelID int64
	Mode    model.RoomMode
	Count   int
}

// CheckoutPayload accompanies CheckoutSucceeded and CheckoutFailed.
type CheckoutPayload struct {
	CheckoutID string
	Draft      model.BookingDraft
	PaymentID  int64
	BookingID  int64
	Amount     float64
	Reason     string
}
