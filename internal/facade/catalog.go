package facade

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"stayease/internal/model"
)

func (s *Server) listHotels(c echo.Context) error {
	hotels, err := s.catalog.LoadHotels(c.Request().Context())
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(hotels))
}

// listRooms loads all rooms, or the available ones when both dates are given.
func (s *Server) listRooms(c echo.Context) error {
	hotelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	ctx := c.Request().Context()

	ci, co := c.QueryParam("checkIn"), c.QueryParam("checkOut")
	if ci == "" && co == "" {
		rooms, err := s.catalog.LoadRooms(ctx, hotelID)
		if err != nil {
			return s.respond(c, err, nil)
		}
		return c.JSON(http.StatusOK, nonNil(rooms))
	}

	checkIn, err := model.ParseDate(ci)
	if err != nil {
		return badRequest(c, "checkIn must be YYYY-MM-DD")
	}
	checkOut, err := model.ParseDate(co)
	if err != nil {
		return badRequest(c, "checkOut must be YYYY-MM-DD")
	}
	if !checkIn.Before(checkOut.Time) {
		return badRequest(c, "checkOut must be after checkIn")
	}
	rooms, err := s.catalog.LoadAvailableRooms(ctx, hotelID, checkIn, checkOut)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(rooms))
}

func (s *Server) clearRooms(c echo.Context) error {
	s.catalog.ClearRoomSet()
	return c.NoContent(http.StatusNoContent)
}

type catalogView struct {
	Hotels        []model.Hotel   `json:"hotels"`
	HotelsLoading bool            `json:"hotelsLoading"`
	Rooms         []model.Room    `json:"rooms"`
	RoomQuery     model.RoomQuery `json:"roomQuery"`
	RoomsLoading  bool            `json:"roomsLoading"`
	Error         string          `json:"error,omitempty"`
}

func (s *Server) catalogState(c echo.Context) error {
	st := s.catalog.State()
	v := catalogView{
		Hotels:        nonNil(st.Hotels),
		HotelsLoading: st.HotelsLoading,
		Rooms:         nonNil(st.RoomSet.Rooms),
		RoomQuery:     st.RoomSet.Query,
		RoomsLoading:  st.RoomsLoading,
	}
	switch {
	case st.RoomsErr != nil:
		v.Error = st.RoomsErr.Error()
	case st.HotelsErr != nil:
		v.Error = st.HotelsErr.Error()
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) addHotel(c echo.Context) error {
	var hotel model.Hotel
	if err := c.Bind(&hotel); err != nil || hotel.Name == "" {
		return badRequest(c, "hotelName is required")
	}
	created, err := s.catalog.AddHotel(c.Request().Context(), hotel)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateHotel(c echo.Context) error {
	hotelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	var hotel model.Hotel
	if err := c.Bind(&hotel); err != nil {
		return badRequest(c, "invalid hotel payload")
	}
	updated, err := s.catalog.UpdateHotel(c.Request().Context(), hotelID, hotel)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteHotel(c echo.Context) error {
	hotelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	if err := s.catalog.DeleteHotel(c.Request().Context(), hotelID); err != nil {
		return s.respond(c, err, nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) addRoom(c echo.Context) error {
	hotelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	var room model.Room
	if err := c.Bind(&room); err != nil || room.Number == "" {
		return badRequest(c, "roomNumber is required")
	}
	created, err := s.catalog.AddRoom(c.Request().Context(), hotelID, room)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateRoom(c echo.Context) error {
	hotelID, ok := parseID(c, "hotelId")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	roomID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var room model.Room
	if err := c.Bind(&room); err != nil {
		return badRequest(c, "invalid room payload")
	}
	updated, err := s.catalog.UpdateRoom(c.Request().Context(), hotelID, roomID, room)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteRoom(c echo.Context) error {
	hotelID, ok := parseID(c, "hotelId")
	if !ok {
		return badRequest(c, "invalid hotel id")
	}
	roomID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	if err := s.catalog.DeleteRoom(c.Request().Context(), hotelID, roomID); err != nil {
		return s.respond(c, err, nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "image file is unreadable")
	}
	defer f.Close()

	url, err := s.catalog.UploadImage(c.Request().Context(), filepath.Base(fh.Filename), f)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, map[string]string{"imageUrl": url})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
