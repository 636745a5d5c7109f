package store

import (
	"context"

	"stayease/internal/events"
	"stayease/internal/model"
)

// BookingClient is the booking collaborator's read side.
type BookingClient interface {
	MyBookings(ctx context.Context, userID int64) ([]model.Booking, error)
	AllBookings(ctx context.Context) ([]model.Booking, error)
}

// BookingState is a snapshot for display.
type BookingState struct {
	Bookings []model.Booking
	Loading  bool
	Err      error
}

// BookingStore holds the last fetched booking list. Nothing is cached
// across navigations; each view re-fetches.
type BookingStore struct {
	client   BookingClient
	opts     Options
	bookings *slot[[]model.Booking]
}

func NewBookingStore(client BookingClient, opts Options) *BookingStore {
	return &BookingStore{
		client:   client,
		opts:     opts,
		bookings: newSlot[[]model.Booking]("bookings", opts, opts.logger("bookings")),
	}
}

// LoadMyBookings replaces the list with the given user's bookings.
func (b *BookingStore) LoadMyBookings(ctx context.Context, userID int64) ([]model.Booking, error) {
	return b.load(ctx, "load my bookings", MsgFetchBookings, func(ctx context.Context) ([]model.Booking, error) {
		return b.client.MyBookings(ctx, userID)
	})
}

// LoadAllBookings replaces the list with every booking.
func (b *BookingStore) LoadAllBookings(ctx context.Context) ([]model.Booking, error) {
	return b.load(ctx, "load all bookings", MsgFetchAllBookings, b.client.AllBookings)
}

func (b *BookingStore) load(ctx context.Context, op, fallback string, fetch func(context.Context) ([]model.Booking, error)) ([]model.Booking, error) {
	ticket := b.bookings.begin()
	bookings, err := fetch(ctx)
	if err != nil {
		fetchErr := newFetchError(op, err, fallback)
		b.bookings.finish(ticket, nil, fetchErr)
		return nil, fetchErr
	}
	if b.bookings.finish(ticket, bookings, nil) {
		b.opts.publish(events.Event{Type: events.BookingsLoaded, Payload: len(bookings)})
	}
	return bookings, nil
}

// Reset drops the list, used on logout.
func (b *BookingStore) Reset() {
	b.bookings.reset(nil)
}

func (b *BookingStore) Bookings() []model.Booking {
	bookings, _, _ := b.bookings.snapshot()
	return bookings
}

func (b *BookingStore) State() BookingState {
	bookings, loading, err := b.bookings.snapshot()
	return BookingState{Bookings: bookings, Loading: loading, Err: err}
}
