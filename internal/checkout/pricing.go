package checkout

import (
	"errors"
	"math"

	"stayease/internal/model"
)

var (
	ErrNoDraft     = errors.New("no booking draft")
	ErrInvalidStay = errors.New("check-out must be after check-in")
)

// Quote is the price shown to the guest and charged by the order.
type Quote struct {
	Nights        int     `json:"nights"`
	PricePerNight float64 `json:"pricePerNight"`
	Total         float64 `json:"total"`
}

// Nights is ceil((checkOut - checkIn) / 24h).
func Nights(checkIn, checkOut model.Date) int {
	d := checkOut.Sub(checkIn.Time)
	return int(math.Ceil(d.Hours() / 24))
}

// Amount is nights times the room price.
func Amount(draft model.BookingDraft) float64 {
	return float64(Nights(draft.CheckIn, draft.CheckOut)) * draft.Room.Price
}

// PriceDraft validates the stay and prices it. A zero-night stay is
// rejected unless allowZeroNights is set, in which case it costs 0.
func PriceDraft(draft model.BookingDraft, allowZeroNights bool) (Quote, error) {
	if draft.CheckIn.IsZero() || draft.CheckOut.IsZero() {
		return Quote{}, ErrInvalidStay
	}
	nights := Nights(draft.CheckIn, draft.CheckOut)
	if nights < 0 || (nights == 0 && !allowZeroNights) {
		return Quote{}, ErrInvalidStay
	}
	return Quote{
		Nights:        nights,
		PricePerNight: draft.Room.Price,
		Total:         Amount(draft),
	}, nil
}
