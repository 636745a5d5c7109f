package model

// Hotel is read-only to customers; admins create and delete it.
type Hotel struct {
	ID       int64  `json:"hotelId,omitempty"`
	Name     string `json:"hotelName"`
	Location string `json:"location"`
	Contact  string `json:"contact"`
	Rooms    []Room `json:"rooms,omitempty"`
}

// Room availability is a server-computed snapshot; the client never recomputes it.
type Room struct {
	ID          int64   `json:"roomId,omitempty"`
	Number      string  `json:"roomNumber"`
	Type        string  `json:"roomType"`
	Price       float64 `json:"roomPrice"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	IsAvailable bool    `json:"isAvailable"`
}

// RoomMode tells which query filled the current room set.
type RoomMode string

const (
	RoomModeNone      RoomMode = ""
	RoomModeAll       RoomMode = "all"
	RoomModeAvailable RoomMode = "available"
)

// RoomQuery describes the query behind the current room set.
type RoomQuery struct {
	HotelID  int64    `json:"hotelId"`
	Mode     RoomMode `json:"mode"`
	CheckIn  Date     `json:"checkIn,omitempty"`
	CheckOut Date     `json:"checkOut,omitempty"`
}
