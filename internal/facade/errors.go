package facade

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"stayease/internal/api"
	"stayease/internal/checkout"
	"stayease/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

type redirectBody struct {
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect"`
}

type postPaymentBody struct {
	Error     string `json:"error"`
	PaymentID int64  `json:"paymentId"`
	Redirect  string `json:"redirect"`
}

type paymentFailureBody struct {
	Error     string            `json:"error"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Redirect  string            `json:"redirect"`
	Failure   *checkout.Failure `json:"failure,omitempty"`
}

type registeredBody struct {
	Error      string `json:"error"`
	Registered bool   `json:"registered"`
	Redirect   string `json:"redirect"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// checkoutGone is returned for unknown or expired checkouts; drafts do not
// survive restarts, so the view goes back to the catalog.
func checkoutGone(c echo.Context) error {
	return c.JSON(http.StatusConflict, redirectBody{Error: "checkout not found", Redirect: checkout.RouteCatalog})
}

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// respond maps store, checkout and collaborator errors to HTTP responses.
func (s *Server) respond(c echo.Context, err error, co *checkout.Orchestrator) error {
	var (
		regErr   *store.RegisteredNotAuthenticatedError
		authErr  *store.AuthError
		fetchErr *store.FetchError
		postErr  *checkout.PostPaymentBookingError
		payErr   *checkout.PaymentError
		stErr    *api.StatusError
	)

	switch {
	case errors.As(err, &regErr):
		msg := "Registered, but login failed. Please log in."
		if errors.As(err, &authErr) {
			msg = authErr.Message
		}
		return c.JSON(http.StatusUnauthorized, registeredBody{Error: msg, Registered: true, Redirect: "/login"})
	case errors.As(err, &authErr):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: authErr.Message})
	case errors.As(err, &postErr):
		return c.JSON(http.StatusBadGateway, postPaymentBody{
			Error:     postErr.Message,
			PaymentID: postErr.PaymentID,
			Redirect:  checkout.RouteBookings,
		})
	case errors.As(err, &payErr):
		body := paymentFailureBody{Error: payErr.Message, Cancelled: payErr.Cancelled, Redirect: checkout.RouteFailure}
		if co != nil {
			if route := co.Snapshot().Route; route != nil {
				body.Failure = route.Failure
			}
		}
		return c.JSON(http.StatusPaymentRequired, body)
	case errors.Is(err, checkout.ErrNoDraft):
		return c.JSON(http.StatusConflict, redirectBody{Error: err.Error(), Redirect: checkout.RouteCatalog})
	case errors.Is(err, checkout.ErrInvalidStay):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, checkout.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &fetchErr):
		return c.JSON(upstreamStatus(err), errorBody{Error: fetchErr.Message})
	case errors.As(err, &stErr):
		msg := stErr.Message
		if msg == "" {
			msg = http.StatusText(stErr.Status)
		}
		return c.JSON(upstreamStatus(err), errorBody{Error: msg})
	}

	s.logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled facade error")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}

// upstreamStatus passes collaborator 4xx through and reports everything
// else, network failures included, as a bad gateway.
func upstreamStatus(err error) int {
	var stErr *api.StatusError
	if errors.As(err, &stErr) && stErr.Status >= 400 && stErr.Status < 500 {
		return stErr.Status
	}
	return http.StatusBadGateway
}
