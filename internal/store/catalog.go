package store

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"stayease/internal/events"
	"stayease/internal/model"
)

// CatalogClient is the catalog and admin collaborator.
type CatalogClient interface {
	Hotels(ctx context.Context) ([]model.Hotel, error)
	Rooms(ctx context.Context, hotelID int64) ([]model.Room, error)
	AvailableRooms(ctx context.Context, hotelID int64, checkIn, checkOut model.Date) ([]model.Room, error)
	AddHotel(ctx context.Context, hotel model.Hotel) (model.Hotel, error)
	UpdateHotel(ctx context.Context, hotelID int64, hotel model.Hotel) (model.Hotel, error)
	DeleteHotel(ctx context.Context, hotelID int64) error
	AddRoom(ctx context.Context, hotelID int64, room model.Room) (model.Room, error)
	UpdateRoom(ctx context.Context, roomID int64, room model.Room) (model.Room, error)
	DeleteRoom(ctx context.Context, roomID int64) error
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// RoomSet is the current room set and the query that filled it.
type RoomSet struct {
	Rooms []model.Room
	Query model.RoomQuery
}

// CatalogState is a snapshot for display.
type CatalogState struct {
	Hotels        []model.Hotel
	HotelsLoading bool
	HotelsErr     error
	RoomSet       RoomSet
	RoomsLoading  bool
	RoomsErr      error
}

// CatalogStore holds the hotel list and the current room set. Every load
// replaces its slot wholesale.
type CatalogStore struct {
	client CatalogClient
	opts   Options
	logger zerolog.Logger
	hotels *slot[[]model.Hotel]
	rooms  *slot[RoomSet]
}

func NewCatalogStore(client CatalogClient, opts Options) *CatalogStore {
	logger := opts.logger("catalog")
	return &CatalogStore{
		client: client,
		opts:   opts,
		logger: logger,
		hotels: newSlot[[]model.Hotel]("hotels", opts, logger),
		rooms:  newSlot[RoomSet]("rooms", opts, logger),
	}
}

// LoadHotels replaces the hotel list.
func (c *CatalogStore) LoadHotels(ctx context.Context) ([]model.Hotel, error) {
	ticket := c.hotels.begin()
	hotels, err := c.client.Hotels(ctx)
	if err != nil {
		fetchErr := newFetchError("load hotels", err, MsgFetchHotels)
		c.hotels.finish(ticket, nil, fetchErr)
		return nil, fetchErr
	}
	if c.hotels.finish(ticket, hotels, nil) {
		c.opts.publish(events.Event{Type: events.CatalogHotels, Payload: len(hotels)})
	}
	return hotels, nil
}

// LoadRooms replaces the current room set with every room of the hotel.
func (c *CatalogStore) LoadRooms(ctx context.Context, hotelID int64) ([]model.Room, error) {
	ticket := c.rooms.begin()
	rooms, err := c.client.Rooms(ctx, hotelID)
	if err != nil {
		fetchErr := newFetchError("load rooms", err, MsgFetchRooms)
		c.rooms.finish(ticket, RoomSet{}, fetchErr)
		return nil, fetchErr
	}
	query := model.RoomQuery{HotelID: hotelID, Mode: model.RoomModeAll}
	c.commitRooms(ticket, rooms, query)
	return rooms, nil
}

// LoadAvailableRooms replaces the current room set with the server's
// availability for [checkIn, checkOut). Dates are validated by the caller.
func (c *CatalogStore) LoadAvailableRooms(ctx context.Context, hotelID int64, checkIn, checkOut model.Date) ([]model.Room, error) {
	ticket := c.rooms.begin()
	rooms, err := c.client.AvailableRooms(ctx, hotelID, checkIn, checkOut)
	if err != nil {
		fetchErr := newFetchError("load available rooms", err, MsgFetchAvailable)
		c.rooms.finish(ticket, RoomSet{}, fetchErr)
		return nil, fetchErr
	}
	query := model.RoomQuery{HotelID: hotelID, Mode: model.RoomModeAvailable, CheckIn: checkIn, CheckOut: checkOut}
	c.commitRooms(ticket, rooms, query)
	return rooms, nil
}

func (c *CatalogStore) commitRooms(ticket uint64, rooms []model.Room, query model.RoomQuery) {
	if !c.rooms.finish(ticket, RoomSet{Rooms: rooms, Query: query}, nil) {
		return
	}
	c.opts.publish(events.Event{Type: events.CatalogRooms, Payload: events.RoomsPayload{
		HotelID: query.HotelID,
		Mode:    query.Mode,
		Count:   len(rooms),
	}})
}

// ClearRoomSet empties the current room set.
func (c *CatalogStore) ClearRoomSet() {
	c.rooms.reset(RoomSet{})
}

func (c *CatalogStore) Hotels() []model.Hotel {
	hotels, _, _ := c.hotels.snapshot()
	return hotels
}

func (c *CatalogStore) Rooms() RoomSet {
	rooms, _, _ := c.rooms.snapshot()
	return rooms
}

// RoomMode tells which query filled the current room set.
func (c *CatalogStore) RoomMode() model.RoomMode {
	return c.Rooms().Query.Mode
}

func (c *CatalogStore) State() CatalogState {
	hotels, hotelsLoading, hotelsErr := c.hotels.snapshot()
	rooms, roomsLoading, roomsErr := c.rooms.snapshot()
	return CatalogState{
		Hotels:        hotels,
		HotelsLoading: hotelsLoading,
		HotelsErr:     hotelsErr,
		RoomSet:       rooms,
		RoomsLoading:  roomsLoading,
		RoomsErr:      roomsErr,
	}
}

// Admin helpers call the collaborator and then refetch the affected slot.

func (c *CatalogStore) AddHotel(ctx context.Context, hotel model.Hotel) (model.Hotel, error) {
	created, err := c.client.AddHotel(ctx, hotel)
	if err != nil {
		return model.Hotel{}, newFetchError("add hotel", err, MsgAdminActionFailed)
	}
	c.logger.Info().Int64("hotel_id", created.ID).Msg("hotel added")
	_, err = c.LoadHotels(ctx)
	return created, err
}

func (c *CatalogStore) UpdateHotel(ctx context.Context, hotelID int64, hotel model.Hotel) (model.Hotel, error) {
	updated, err := c.client.UpdateHotel(ctx, hotelID, hotel)
	if err != nil {
		return model.Hotel{}, newFetchError("update hotel", err, MsgAdminActionFailed)
	}
	_, err = c.LoadHotels(ctx)
	return updated, err
}

func (c *CatalogStore) DeleteHotel(ctx context.Context, hotelID int64) error {
	if err := c.client.DeleteHotel(ctx, hotelID); err != nil {
		return newFetchError("delete hotel", err, MsgAdminActionFailed)
	}
	c.logger.Info().Int64("hotel_id", hotelID).Msg("hotel deleted")
	_, err := c.LoadHotels(ctx)
	return err
}

func (c *CatalogStore) AddRoom(ctx context.Context, hotelID int64, room model.Room) (model.Room, error) {
	created, err := c.client.AddRoom(ctx, hotelID, room)
	if err != nil {
		return model.Room{}, newFetchError("add room", err, MsgAdminActionFailed)
	}
	_, err = c.LoadRooms(ctx, hotelID)
	return created, err
}

func (c *CatalogStore) UpdateRoom(ctx context.Context, hotelID, roomID int64, room model.Room) (model.Room, error) {
	updated, err := c.client.UpdateRoom(ctx, roomID, room)
	if err != nil {
		return model.Room{}, newFetchError("update room", err, MsgAdminActionFailed)
	}
	_, err = c.LoadRooms(ctx, hotelID)
	return updated, err
}

func (c *CatalogStore) DeleteRoom(ctx context.Context, hotelID, roomID int64) error {
	if err := c.client.DeleteRoom(ctx, roomID); err != nil {
		return newFetchError("delete room", err, MsgAdminActionFailed)
	}
	_, err := c.LoadRooms(ctx, hotelID)
	return err
}

// UploadImage passes the image through and returns its URL.
func (c *CatalogStore) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	url, err := c.client.UploadImage(ctx, filename, r)
	if err != nil {
		return "", newFetchError("upload image", err, MsgUploadFailed)
	}
	return url, nil
}
