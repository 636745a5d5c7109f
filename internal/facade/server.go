// Package facade exposes the storefront stores to a view layer as JSON routes.
package facade

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"stayease/internal/checkout"
	"stayease/internal/model"
	"stayease/internal/store"
)

// PaymentLookup reads payment records for the bookings views.
type PaymentLookup interface {
	Payment(ctx context.Context, paymentID int64) (model.Payment, error)
	PaymentsByBooking(ctx context.Context, bookingID int64) ([]model.Payment, error)
	PaymentsByUser(ctx context.Context, userID int64) ([]model.Payment, error)
}

// Deps are the components the facade routes onto.
type Deps struct {
	Session   *store.SessionStore
	Catalog   *store.CatalogStore
	Bookings  *store.BookingStore
	Checkouts *checkout.Registry
	Payments  PaymentLookup
	Logger    *zerolog.Logger
}

// Server is the JSON facade.
type Server struct {
	session   *store.SessionStore
	catalog   *store.CatalogStore
	bookings  *store.BookingStore
	checkouts *checkout.Registry
	payments  PaymentLookup
	logger    zerolog.Logger
	now       func() time.Time
	echo      *echo.Echo
}

func New(deps Deps) *Server {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "facade").Logger()
	}

	s := &Server{
		session:   deps.Session,
		catalog:   deps.Catalog,
		bookings:  deps.Bookings,
		checkouts: deps.Checkouts,
		payments:  deps.Payments,
		logger:    logger,
		now:       time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")

	api.GET("/session", s.getSession)
	api.POST("/session/login", s.login)
	api.POST("/session/register", s.register)
	api.DELETE("/session", s.logout)

	api.GET("/hotels", s.listHotels)
	api.GET("/hotels/:id/rooms", s.listRooms)
	api.DELETE("/hotels/:id/rooms", s.clearRooms)
	api.GET("/catalog", s.catalogState)

	member := api.Group("", s.requireSession)
	member.GET("/bookings/mine", s.myBookings)
	member.GET("/bookings/:id/payments", s.bookingPayments)
	member.GET("/payments/mine", s.myPayments)
	member.GET("/payments/:id", s.payment)

	member.POST("/checkout", s.startCheckout)
	member.GET("/checkout/:id", s.getCheckout)
	member.POST("/checkout/:id/pay", s.pay)
	member.POST("/checkout/:id/payment-success", s.paymentSuccess)
	member.POST("/checkout/:id/payment-failure", s.paymentFailure)
	member.DELETE("/checkout/:id", s.abandonCheckout)

	admin := api.Group("/admin", s.requireSession, s.requireAdmin)
	admin.GET("/bookings", s.allBookings)
	admin.GET("/bookings/export", s.exportBookings)
	admin.POST("/hotels", s.addHotel)
	admin.PUT("/hotels/:id", s.updateHotel)
	admin.DELETE("/hotels/:id", s.deleteHotel)
	admin.POST("/hotels/:id/rooms", s.addRoom)
	admin.PUT("/hotels/:hotelId/rooms/:id", s.updateRoom)
	admin.DELETE("/hotels/:hotelId/rooms/:id", s.deleteRoom)
	admin.POST("/upload", s.uploadImage)
}

// Handler returns the HTTP handler, for tests and custom servers.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("facade listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
