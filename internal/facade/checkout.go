package facade

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"stayease/internal/checkout"
	"stayease/internal/model"
)

// startCheckout receives the draft handed off by the room selection view.
// An empty body is the "direct navigation" case and redirects to the catalog.
func (s *Server) startCheckout(c echo.Context) error {
	var draft *model.BookingDraft
	if c.Request().ContentLength != 0 {
		draft = &model.BookingDraft{}
		if err := c.Bind(draft); err != nil {
			return badRequest(c, "invalid booking draft")
		}
		// The draft always belongs to the signed-in user.
		draft.UserID = s.session.Session().UserID
	}

	co, err := s.checkouts.Start(draft, nil)
	if err != nil {
		return s.respond(c, err, nil)
	}
	return c.JSON(http.StatusCreated, co.Snapshot())
}

func (s *Server) lookup(c echo.Context) *checkout.Orchestrator {
	return s.checkouts.Get(c.Param("id"))
}

func (s *Server) getCheckout(c echo.Context) error {
	co := s.lookup(c)
	if co == nil {
		return checkoutGone(c)
	}
	return c.JSON(http.StatusOK, co.Snapshot())
}

type payResponse struct {
	ID     string                 `json:"id"`
	State  checkout.State         `json:"state"`
	Quote  checkout.Quote         `json:"quote"`
	Widget checkout.WidgetOptions `json:"widget"`
}

func (s *Server) pay(c echo.Context) error {
	co := s.lookup(c)
	if co == nil {
		return checkoutGone(c)
	}
	var prefill checkout.Prefill
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&prefill); err != nil {
			return badRequest(c, "invalid prefill payload")
		}
	}
	opts, err := co.Pay(c.Request().Context(), prefill)
	if err != nil {
		return s.respond(c, err, co)
	}
	return c.JSON(http.StatusOK, payResponse{ID: co.ID(), State: co.State(), Quote: co.Quote(), Widget: opts})
}

func (s *Server) paymentSuccess(c echo.Context) error {
	co := s.lookup(c)
	if co == nil {
		return checkoutGone(c)
	}
	var resp checkout.GatewayResponse
	if err := c.Bind(&resp); err != nil {
		return badRequest(c, "invalid gateway response")
	}
	if resp.OrderID == "" || resp.PaymentID == "" || resp.Signature == "" {
		return badRequest(c, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	conf, err := co.PaymentSucceeded(c.Request().Context(), resp)
	if err != nil {
		return s.respond(c, err, co)
	}
	s.checkouts.Delete(co.ID())
	return c.JSON(http.StatusOK, conf)
}

type widgetFailure struct {
	Error     string `json:"error"`
	Cancelled bool   `json:"cancelled"`
}

func (s *Server) paymentFailure(c echo.Context) error {
	co := s.lookup(c)
	if co == nil {
		return checkoutGone(c)
	}
	var body widgetFailure
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid failure payload")
		}
	}

	ctx := c.Request().Context()
	var err error
	if body.Cancelled {
		err = co.PaymentCancelled(ctx)
	} else {
		var cause error
		if body.Error != "" {
			cause = errors.New(body.Error)
		}
		err = co.PaymentFailed(ctx, cause)
	}
	return s.respond(c, err, co)
}

func (s *Server) abandonCheckout(c echo.Context) error {
	co := s.lookup(c)
	if co == nil {
		return checkoutGone(c)
	}
	if err := co.Abandon(); err != nil {
		return s.respond(c, err, co)
	}
	s.checkouts.Delete(co.ID())
	return c.JSON(http.StatusOK, redirectBody{Redirect: checkout.RouteCatalog})
}
