package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"stayease/internal/model"
)

// Backend is the hotel backend client: auth, catalog, admin and booking endpoints.
type Backend struct {
	t     *Transport
	cache *responseCache
}

// NewBackend constructs a backend client over the given transport.
func NewBackend(t *Transport) *Backend {
	return &Backend{t: t}
}

// UseRedisCache configures optional Redis caching for the undated catalog GETs.
func (b *Backend) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	b.cache = &responseCache{redis: redisClient, ttl: ttl}
}

// Transport exposes the underlying transport.
func (b *Backend) Transport() *Transport {
	return b.t
}

// Login exchanges credentials for a raw session payload.
func (b *Backend) Login(ctx context.Context, creds model.Credentials) (model.LoginPayload, error) {
	var resp model.LoginPayload
	if err := b.t.postJSON(ctx, "login", "/auth/login", creds, &resp, nil); err != nil {
		return model.LoginPayload{}, err
	}
	return resp, nil
}

// Register creates an account. It does not establish a session.
func (b *Backend) Register(ctx context.Context, profile model.Profile) error {
	return b.t.postJSON(ctx, "register", "/auth/register", profile, nil, nil)
}

// Hotels lists all hotels.
func (b *Backend) Hotels(ctx context.Context) ([]model.Hotel, error) {
	var hotels []model.Hotel
	if b.cache.read(ctx, cacheHotelsKey, &hotels) {
		return hotels, nil
	}
	if err := b.t.getJSON(ctx, "hotels", "/customer/hotels", &hotels); err != nil {
		return nil, err
	}
	b.cache.write(ctx, cacheHotelsKey, hotels)
	return hotels, nil
}

// Rooms lists every room of a hotel.
func (b *Backend) Rooms(ctx context.Context, hotelID int64) ([]model.Room, error) {
	var rooms []model.Room
	key := roomsCacheKey(hotelID)
	if b.cache.read(ctx, key, &rooms) {
		return rooms, nil
	}
	if err := b.t.getJSON(ctx, "rooms", fmt.Sprintf("/customer/hotel/%d/rooms", hotelID), &rooms); err != nil {
		return nil, err
	}
	b.cache.write(ctx, key, rooms)
	return rooms, nil
}

// AvailableRooms lists rooms the backend reports free for [checkIn, checkOut).
func (b *Backend) AvailableRooms(ctx context.Context, hotelID int64, checkIn, checkOut model.Date) ([]model.Room, error) {
	q := url.Values{}
	q.Set("checkIn", checkIn.String())
	q.Set("checkOut", checkOut.String())
	path := fmt.Sprintf("/customer/hotel/%d/available-rooms?%s", hotelID, q.Encode())

	var rooms []model.Room
	if err := b.t.getJSON(ctx, "available_rooms", path, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// AddHotel creates a hotel.
func (b *Backend) AddHotel(ctx context.Context, hotel model.Hotel) (model.Hotel, error) {
	var created model.Hotel
	if err := b.t.postJSON(ctx, "add_hotel", "/admin/add-hotel", hotel, &created, nil); err != nil {
		return model.Hotel{}, err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey})
	return created, nil
}

// UpdateHotel replaces a hotel's details.
func (b *Backend) UpdateHotel(ctx context.Context, hotelID int64, hotel model.Hotel) (model.Hotel, error) {
	var updated model.Hotel
	if err := b.t.putJSON(ctx, "update_hotel", fmt.Sprintf("/admin/update-hotel/%d", hotelID), hotel, &updated); err != nil {
		return model.Hotel{}, err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey})
	return updated, nil
}

// DeleteHotel removes a hotel and its rooms.
func (b *Backend) DeleteHotel(ctx context.Context, hotelID int64) error {
	if err := b.t.delete(ctx, "delete_hotel", fmt.Sprintf("/admin/delete-hotel/%d", hotelID)); err != nil {
		return err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey, roomsCacheKey(hotelID)})
	return nil
}

// AddRoom adds a room to a hotel.
func (b *Backend) AddRoom(ctx context.Context, hotelID int64, room model.Room) (model.Room, error) {
	var created model.Room
	if err := b.t.postJSON(ctx, "add_room", fmt.Sprintf("/admin/hotel/%d/add-room", hotelID), room, &created, nil); err != nil {
		return model.Room{}, err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey, roomsCacheKey(hotelID)})
	return created, nil
}

// UpdateRoom replaces a room's details.
func (b *Backend) UpdateRoom(ctx context.Context, roomID int64, room model.Room) (model.Room, error) {
	var updated model.Room
	if err := b.t.putJSON(ctx, "update_room", fmt.Sprintf("/admin/update-room/%d", roomID), room, &updated); err != nil {
		return model.Room{}, err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey}, cacheRoomsPrefix)
	return updated, nil
}

// DeleteRoom removes a room. The room's hotel is unknown here, so every cached room list is dropped.
func (b *Backend) DeleteRoom(ctx context.Context, roomID int64) error {
	if err := b.t.delete(ctx, "delete_room", fmt.Sprintf("/admin/delete-room/%d", roomID)); err != nil {
		return err
	}
	b.cache.invalidate(ctx, []string{cacheHotelsKey}, cacheRoomsPrefix)
	return nil
}

// UploadImage uploads a room image and returns its public URL.
func (b *Backend) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	var imageURL string
	if err := b.t.do(ctx, "upload_image", http.MethodPost, "/admin/upload", &buf, mw.FormDataContentType(), nil, &imageURL); err != nil {
		return "", err
	}
	return imageURL, nil
}

// BookRoom creates a booking for an already verified payment. A non-empty
// idempotencyKey is sent as the Idempotency-Key header.
func (b *Backend) BookRoom(ctx context.Context, req model.BookRoomRequest, idempotencyKey string) (model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var booking model.Booking
	if err := b.t.postJSON(ctx, "book_room", "/customer/book-room", req, &booking, headers); err != nil {
		return model.Booking{}, err
	}
	return booking, nil
}

// MyBookings lists the bookings of one user.
func (b *Backend) MyBookings(ctx context.Context, userID int64) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := b.t.getJSON(ctx, "my_bookings", fmt.Sprintf("/customer/my-bookings/%d", userID), &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// AllBookings lists every booking (admin).
func (b *Backend) AllBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := b.t.getJSON(ctx, "all_bookings", "/admin/all-bookings", &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}
