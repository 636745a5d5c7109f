package facade

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"stayease/internal/export"
)

func (s *Server) myBookings(c echo.Context) error {
	userID := s.session.Session().UserID
	bookings, err := s.bookings.LoadMyBookings(c.Request().Context(), userID)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(bookings))
}

func (s *Server) allBookings(c echo.Context) error {
	bookings, err := s.bookings.LoadAllBookings(c.Request().Context())
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(bookings))
}

func (s *Server) exportBookings(c echo.Context) error {
	bookings, err := s.bookings.LoadAllBookings(c.Request().Context())
	if err != nil {
		return s.respond(c, err, nil)
	}
	var buf bytes.Buffer
	if err := export.BookingsWorkbook(&buf, bookings); err != nil {
		return s.respond(c, fmt.Errorf("export bookings: %w", err), nil)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, export.Filename(s.now())))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *Server) myPayments(c echo.Context) error {
	payments, err := s.payments.PaymentsByUser(c.Request().Context(), s.session.Session().UserID)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(payments))
}

func (s *Server) bookingPayments(c echo.Context) error {
	bookingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	payments, err := s.payments.PaymentsByBooking(c.Request().Context(), bookingID)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, nonNil(payments))
}

func (s *Server) payment(c echo.Context) error {
	paymentID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	p, err := s.payments.Payment(c.Request().Context(), paymentID)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusOK, p)
}
