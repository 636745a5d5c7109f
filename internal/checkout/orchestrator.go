package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stayease/internal/api"
	"stayease/internal/events"
	"stayease/internal/metrics"
	"stayease/internal/model"
)

// PaymentClient is the payment collaborator.
type PaymentClient interface {
	CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.Order, error)
	Verify(ctx context.Context, req model.VerifyRequest) (model.PaymentResult, error)
}

// BookingCreator is the booking collaborator's write side.
type BookingCreator interface {
	BookRoom(ctx context.Context, req model.BookRoomRequest, idempotencyKey string) (model.Booking, error)
}

// Settings are the checkout knobs read from config.
type Settings struct {
	Currency        string
	MerchantName    string
	ThemeColor      string
	AllowZeroNights bool
	IdempotencyKeys bool
}

// Deps wires an orchestrator to its collaborators.
type Deps struct {
	Payments  PaymentClient
	Bookings  BookingCreator
	Navigator Navigator
	Bus       events.Publisher
	Logger    *zerolog.Logger
	Settings  Settings
}

// View is a snapshot of one checkout.
type View struct {
	ID           string              `json:"id"`
	State        State               `json:"state"`
	Draft        *model.BookingDraft `json:"bookingDetails,omitempty"`
	Quote        Quote               `json:"quote"`
	Order        *model.Order        `json:"order,omitempty"`
	Confirmation *Confirmation       `json:"confirmation,omitempty"`
	Route        *Route              `json:"route,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Orchestrator owns one draft from room selection to confirmation.
// Failures are terminal and nothing is retried.
type Orchestrator struct {
	id     string
	deps   Deps
	fsm    *FSM
	logger zerolog.Logger
	now    func() time.Time

	// op serializes collaborator steps; mu guards the fields below.
	op sync.Mutex
	mu sync.Mutex

	state        State
	draft        *model.BookingDraft
	quote        Quote
	order        *model.Order
	confirmation *Confirmation
	route        *Route
	err          error
	updatedAt    time.Time
}

// New starts a checkout in Drafting. A nil draft sends the navigator to
// the catalog and returns ErrNoDraft.
func New(id string, draft *model.BookingDraft, deps Deps) (*Orchestrator, error) {
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if deps.Settings.Currency == "" {
		deps.Settings.Currency = "INR"
	}
	if draft == nil || draft.UserID == 0 || draft.Room.ID == 0 {
		deps.Navigator.ToCatalog()
		return nil, ErrNoDraft
	}
	quote, err := PriceDraft(*draft, deps.Settings.AllowZeroNights)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "checkout").Str("checkout_id", id).Logger()
	}

	d := *draft
	o := &Orchestrator{
		id:        id,
		deps:      deps,
		fsm:       NewFSM(),
		logger:    logger,
		now:       time.Now,
		state:     StateDrafting,
		draft:     &d,
		quote:     quote,
		updatedAt: time.Now(),
	}
	metrics.IncCheckoutTransition(string(StateDrafting))
	return o, nil
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Quote is the amount shown before payment. Pay charges the same value.
func (o *Orchestrator) Quote() Quote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quote
}

// Err is the terminal failure, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := View{
		ID:           o.id,
		State:        o.state,
		Quote:        o.quote,
		Order:        o.order,
		Confirmation: o.confirmation,
		Route:        o.route,
	}
	if o.draft != nil {
		d := *o.draft
		v.Draft = &d
	}
	if o.err != nil {
		v.Error = o.err.Error()
	}
	return v
}

// PaymentGrace bounds how long a checkout with an open gateway order is
// kept. The widget can report success long after the idle timeout.
const PaymentGrace = 24 * time.Hour

// IsExpired reports whether the checkout has been idle longer than timeout.
// Once an order exists and until the booking outcome is known, PaymentGrace
// applies instead when it is longer.
func (o *Orchestrator) IsExpired(timeout time.Duration) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateAwaitingPayment, StateVerifying, StateBookingCreating:
		timeout = max(timeout, PaymentGrace)
	}
	return o.now().Sub(o.updatedAt) > timeout
}

// Pay creates the gateway order and moves to AwaitingPayment.
func (o *Orchestrator) Pay(ctx context.Context, prefill Prefill) (WidgetOptions, error) {
	o.op.Lock()
	defer o.op.Unlock()

	draft, err := o.expect(StateDrafting)
	if err != nil {
		return WidgetOptions{}, err
	}
	quote := o.Quote()

	req := model.CreateOrderRequest{
		BookingID: 0,
		UserID:    draft.UserID,
		Amount:    quote.Total,
		Currency:  o.deps.Settings.Currency,
		Receipt:   fmt.Sprintf("booking_0_%d", o.now().UnixMilli()),
	}
	order, err := o.deps.Payments.CreateOrder(ctx, req)
	if err != nil {
		perr := &PaymentError{Stage: "create_order", Message: messageOr(err, "Could not create payment order"), Err: err}
		o.fail(perr)
		return WidgetOptions{}, perr
	}

	o.mu.Lock()
	o.order = &order
	o.transitionLocked(StateAwaitingPayment)
	o.mu.Unlock()

	o.logger.Info().Str("order_id", order.RazorpayOrderID).Float64("amount", quote.Total).Msg("payment order created")

	currency := order.Currency
	if currency == "" {
		currency = req.Currency
	}
	return WidgetOptions{
		Key:         order.RazorpayKeyID,
		Amount:      int64(math.Round(order.Amount * 100)),
		Currency:    currency,
		Name:        o.deps.Settings.MerchantName,
		Description: "Booking Payment",
		OrderID:     order.RazorpayOrderID,
		Prefill:     prefill.withDefaults(),
		Notes:       notes(draft.UserID),
		ThemeColor:  o.deps.Settings.ThemeColor,
	}, nil
}

// Checkout is Pay followed by opening the widget with o as its callbacks.
func (o *Orchestrator) Checkout(ctx context.Context, widget Widget, prefill Prefill) error {
	opts, err := o.Pay(ctx, prefill)
	if err != nil {
		return err
	}
	return widget.Open(ctx, opts, o)
}

// PaymentSucceeded verifies the gateway response and creates the booking.
func (o *Orchestrator) PaymentSucceeded(ctx context.Context, resp GatewayResponse) (Confirmation, error) {
	o.op.Lock()
	defer o.op.Unlock()

	draft, err := o.expect(StateAwaitingPayment)
	if err != nil {
		return Confirmation{}, err
	}
	quote := o.Quote()
	o.setState(StateVerifying)

	result, err := o.deps.Payments.Verify(ctx, model.VerifyRequest{
		RazorpayOrderID:   resp.OrderID,
		RazorpayPaymentID: resp.PaymentID,
		RazorpaySignature: resp.Signature,
	})
	if err == nil && !result.Status.Verified() {
		err = fmt.Errorf("payment status %s", result.Status)
	}
	if err != nil {
		perr := &PaymentError{Stage: "verify", Message: messageOr(err, verifyMessage(result)), Err: err}
		o.fail(perr)
		return Confirmation{}, perr
	}

	o.setState(StateBookingCreating)

	var key string
	if o.deps.Settings.IdempotencyKeys {
		key = fmt.Sprintf("payment-%d", result.PaymentID)
	}
	booking, err := o.deps.Bookings.BookRoom(ctx, model.BookRoomRequest{
		UserID:       draft.UserID,
		RoomID:       draft.Room.ID,
		CheckInDate:  draft.CheckIn,
		CheckOutDate: draft.CheckOut,
		PaymentID:    result.PaymentID,
		AmountPaid:   quote.Total,
	}, key)
	if err != nil {
		berr := &PostPaymentBookingError{PaymentID: result.PaymentID, Message: messageOr(err, "Booking creation failed"), Err: err}
		metrics.IncPaidUnbooked()
		o.logger.Error().Err(err).Int64("payment_id", result.PaymentID).Msg("payment succeeded but booking failed")

		o.mu.Lock()
		o.err = berr
		o.transitionLocked(StateFailed)
		o.route = &Route{Path: RouteBookings, PaymentID: result.PaymentID}
		o.mu.Unlock()

		o.deps.Navigator.ToBookings(result.PaymentID)
		o.publish(events.CheckoutFailed, draft, result.PaymentID, 0, berr.Error())
		return Confirmation{}, berr
	}

	conf := Confirmation{Payment: result, Booking: booking, Draft: draft}

	o.mu.Lock()
	o.confirmation = &conf
	o.draft = nil
	o.transitionLocked(StateSucceeded)
	o.route = &Route{Path: RouteConfirmation, Confirmation: &conf}
	o.mu.Unlock()

	o.logger.Info().Int64("booking_id", booking.ID).Int64("payment_id", result.PaymentID).Msg("booking confirmed")
	o.deps.Navigator.ToConfirmation(conf)
	o.publish(events.CheckoutSucceeded, draft, result.PaymentID, booking.ID, "")
	return conf, nil
}

// PaymentFailed records the widget's failure callback. No booking is created.
func (o *Orchestrator) PaymentFailed(_ context.Context, cause error) error {
	o.op.Lock()
	defer o.op.Unlock()

	if _, err := o.expect(StateAwaitingPayment); err != nil {
		return err
	}
	msg := "Payment failed"
	if cause != nil {
		msg = cause.Error()
	}
	perr := &PaymentError{Stage: "widget", Message: msg, Err: cause}
	o.fail(perr)
	return perr
}

// PaymentCancelled records the guest dismissing the widget.
func (o *Orchestrator) PaymentCancelled(_ context.Context) error {
	o.op.Lock()
	defer o.op.Unlock()

	if _, err := o.expect(StateAwaitingPayment); err != nil {
		return err
	}
	perr := &PaymentError{Stage: "widget", Message: "Payment cancelled", Cancelled: true}
	o.fail(perr)
	return perr
}

var ErrAbandoned = errors.New("checkout abandoned")

// Abandon discards the draft on back navigation. Only allowed before the
// gateway response is being verified.
func (o *Orchestrator) Abandon() error {
	o.op.Lock()
	defer o.op.Unlock()

	o.mu.Lock()
	if o.state != StateDrafting && o.state != StateAwaitingPayment {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: abandon from %s", ErrInvalidTransition, state)
	}
	draft := *o.draft
	o.draft = nil
	o.err = ErrAbandoned
	o.transitionLocked(StateFailed)
	o.route = &Route{Path: RouteCatalog}
	o.mu.Unlock()

	o.deps.Navigator.ToCatalog()
	o.publish(events.CheckoutFailed, draft, 0, 0, ErrAbandoned.Error())
	return nil
}

// expect checks the current state and returns a copy of the draft.
func (o *Orchestrator) expect(want State) (model.BookingDraft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != want || o.draft == nil {
		return model.BookingDraft{}, fmt.Errorf("%w: in %s, want %s", ErrInvalidTransition, o.state, want)
	}
	return *o.draft, nil
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitionLocked(to)
}

func (o *Orchestrator) transitionLocked(to State) {
	if !o.fsm.CanTransition(o.state, to) {
		// Unreachable: every caller checks the state first while holding op.
		panic(fmt.Sprintf("checkout: %s -> %s", o.state, to))
	}
	o.logger.Debug().Str("from", string(o.state)).Str("to", string(to)).Msg("checkout transition")
	o.state = to
	o.updatedAt = o.now()
	metrics.IncCheckoutTransition(string(to))
}

// fail moves to Failed with a payment error and shows the failure view.
func (o *Orchestrator) fail(perr *PaymentError) {
	o.mu.Lock()
	draft := *o.draft
	o.err = perr
	o.transitionLocked(StateFailed)
	failure := Failure{Message: perr.Message, Cancelled: perr.Cancelled, Draft: draft}
	o.route = &Route{Path: RouteFailure, Failure: &failure}
	o.mu.Unlock()

	o.logger.Warn().Err(perr).Msg("checkout failed")
	o.deps.Navigator.ToFailure(failure)
	o.publish(events.CheckoutFailed, draft, 0, 0, perr.Error())
}

func (o *Orchestrator) publish(eventType string, draft model.BookingDraft, paymentID, bookingID int64, reason string) {
	if o.deps.Bus == nil {
		return
	}
	o.deps.Bus.Publish(events.Event{Type: eventType, Payload: events.CheckoutPayload{
		CheckoutID: o.id,
		Draft:      draft,
		PaymentID:  paymentID,
		BookingID:  bookingID,
		Amount:     o.Quote().Total,
		Reason:     reason,
	}})
}

func messageOr(err error, fallback string) string {
	if msg := api.Payload(err); msg != "" {
		return msg
	}
	return fallback
}

func verifyMessage(r model.PaymentResult) string {
	if r.Message != "" {
		return r.Message
	}
	return "Payment verification failed"
}
