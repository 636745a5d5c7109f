package model

// BookingUser is the projection of the guest embedded in a booking.
type BookingUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	ContactNo string `json:"contactNo,omitempty"`
}

// Booking is created server-side and immutable once listed.
type Booking struct {
	ID           int64       `json:"bookingId"`
	BookingDate  Date        `json:"bookingDate,omitempty"`
	User         BookingUser `json:"user"`
	Room         Room        `json:"room"`
	CheckInDate  Date        `json:"checkInDate"`
	CheckOutDate Date        `json:"checkOutDate"`
	TotalAmount  float64     `json:"totalAmount"`
}

// BookRoomRequest is sent to the booking collaborator after a verified payment.
type BookRoomRequest struct {
	UserID       int64   `json:"userId"`
	RoomID       int64   `json:"roomId"`
	CheckInDate  Date    `json:"checkInDate"`
	CheckOutDate Date    `json:"checkOutDate"`
	PaymentID    int64   `json:"paymentId"`
	AmountPaid   float64 `json:"amountPaid"`
}

// BookingDraft is an unpersisted booking intent carried between the room
// selection, payment and confirmation views.
type BookingDraft struct {
	UserID   int64 `json:"userId"`
	Room     Room  `json:"room"`
	CheckIn  Date  `json:"checkInDate"`
	CheckOut Date  `json:"checkOutDate"`
}
