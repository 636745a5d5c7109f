package facade

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayease/internal/api"
	"stayease/internal/checkout"
	"stayease/internal/export"
	"stayease/internal/persist"
	"stayease/internal/store"
)

// fakeUpstream serves both the hotel backend and the payment service.
type fakeUpstream struct {
	bookRoomStatus int
	bookings       int
	idempotencyKey string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/auth/login":
		var creds struct{ Email string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		switch creds.Email {
		case "admin@example.com":
			_, _ = w.Write([]byte(`{"token":"admin-tok","role":"ROLE_ADMIN","userId":1}`))
		case "guest@example.com":
			_, _ = w.Write([]byte(`{"token":"guest-tok","role":"CUSTOMER","userId":"7"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		}
	case r.URL.Path == "/api/customer/hotels":
		_, _ = w.Write([]byte(`[{"hotelId":1,"hotelName":"Sea View","location":"Goa"}]`))
	case r.URL.Path == "/api/customer/hotel/1/rooms":
		_, _ = w.Write([]byte(`[{"roomId":2,"roomNumber":"101","roomPrice":100},{"roomId":3,"roomNumber":"102","roomPrice":150}]`))
	case r.URL.Path == "/api/customer/hotel/1/available-rooms":
		_, _ = w.Write([]byte(`[{"roomId":2,"roomNumber":"101","roomPrice":100,"isAvailable":true}]`))
	case r.URL.Path == "/api/customer/my-bookings/7", r.URL.Path == "/api/admin/all-bookings":
		_, _ = w.Write([]byte(`[{"bookingId":11,"user":{"id":7,"name":"Guest"},"room":{"roomId":2,"roomNumber":"101"},"checkInDate":"2024-05-01","checkOutDate":"2024-05-03","totalAmount":200}]`))
	case r.URL.Path == "/api/customer/book-room":
		f.bookings++
		f.idempotencyKey = r.Header.Get("Idempotency-Key")
		if f.bookRoomStatus != 0 {
			w.WriteHeader(f.bookRoomStatus)
			_, _ = w.Write([]byte(`{"message":"Room already booked"}`))
			return
		}
		_, _ = w.Write([]byte(`{"bookingId":11,"checkInDate":"2024-05-01","checkOutDate":"2024-05-03","totalAmount":200}`))
	case r.URL.Path == "/api/admin/upload":
		_, _ = w.Write([]byte("http://cdn.example.com/room.jpg"))
	case r.URL.Path == "/api/payments/create-order":
		_, _ = w.Write([]byte(`{"paymentId":9,"razorpayOrderId":"order_1","razorpayKeyId":"key_1","amount":200,"currency":"INR"}`))
	case r.URL.Path == "/api/payments/verify":
		_, _ = w.Write([]byte(`{"paymentId":9,"amount":200,"status":"COMPLETED","razorpayPaymentId":"pay_1"}`))
	case r.URL.Path == "/api/payments/user/7":
		_, _ = w.Write([]byte(`[{"paymentId":9,"status":"COMPLETED"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type harness struct {
	server   *Server
	upstream *fakeUpstream
	session  *store.SessionStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	upstream := &fakeUpstream{}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	logger := zerolog.New(io.Discard)
	backendTransport := api.NewTransport(api.Options{Name: "backend", BaseURL: srv.URL + "/api"})
	paymentTransport := api.NewTransport(api.Options{Name: "payment", BaseURL: srv.URL + "/api/payments"})
	backend := api.NewBackend(backendTransport)
	payments := api.NewPayments(paymentTransport)

	opts := store.Options{Logger: &logger}
	session := store.NewSessionStore(backend, persist.NewMemory(), opts)
	backendTransport.SetTokenSource(session)
	paymentTransport.SetTokenSource(session)

	registry := checkout.NewRegistry(checkout.Deps{
		Payments: payments,
		Bookings: backend,
		Logger:   &logger,
		Settings: checkout.Settings{Currency: "INR", MerchantName: "StayEase", IdempotencyKeys: true},
	}, time.Minute)

	s := New(Deps{
		Session:   session,
		Catalog:   store.NewCatalogStore(backend, opts),
		Bookings:  store.NewBookingStore(backend, opts),
		Checkouts: registry,
		Payments:  payments,
		Logger:    &logger,
	})
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return &harness{server: s, upstream: upstream, session: session}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/session/login", `{"email":"`+email+`","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const draftBody = `{"room":{"roomId":2,"roomNumber":"101","roomPrice":100},"checkInDate":"2024-05-01","checkOutDate":"2024-05-03"}`

func TestSessionLoginAndLogout(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/session/login", `{"email":"nobody@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bad credentials", decode[errorBody](t, rec).Error)

	h.login(t, "guest@example.com")
	view := decode[sessionView](t, h.do(t, http.MethodGet, "/api/session", ""))
	assert.True(t, view.Authenticated)
	assert.Equal(t, int64(7), view.UserID)

	rec = h.do(t, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, h.session.Session().IsAuthenticated())
}

func TestLoginValidatesPayload(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/session/login", `{"email":"guest@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberRoutesRequireSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/bookings/mine", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", decode[redirectBody](t, rec).Redirect)
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")
	rec := h.do(t, http.MethodGet, "/api/admin/bookings", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoomListing(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/hotels/1/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = h.do(t, http.MethodGet, "/api/hotels/1/rooms?checkIn=2024-05-01&checkOut=2024-05-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	state := decode[catalogView](t, h.do(t, http.MethodGet, "/api/catalog", ""))
	assert.Equal(t, "available", string(state.RoomQuery.Mode))
	assert.Len(t, state.Rooms, 1)

	rec = h.do(t, http.MethodDelete, "/api/hotels/1/rooms", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	state = decode[catalogView](t, h.do(t, http.MethodGet, "/api/catalog", ""))
	assert.Empty(t, state.Rooms)
}

func TestRoomListingRejectsBadDates(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		query string
	}{
		{"missing checkout", "?checkIn=2024-05-01"},
		{"malformed", "?checkIn=01/05/2024&checkOut=2024-05-03"},
		{"reversed", "?checkIn=2024-05-03&checkOut=2024-05-01"},
		{"same day", "?checkIn=2024-05-01&checkOut=2024-05-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/hotels/1/rooms"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")

	rec := h.do(t, http.MethodPost, "/api/checkout", draftBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[checkout.View](t, rec)
	assert.Equal(t, checkout.StateDrafting, view.State)
	assert.Equal(t, 200.0, view.Quote.Total)
	require.NotNil(t, view.Draft)
	assert.Equal(t, int64(7), view.Draft.UserID)

	rec = h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/pay", `{"name":"Asha"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pay := decode[payResponse](t, rec)
	assert.Equal(t, checkout.StateAwaitingPayment, pay.State)
	assert.Equal(t, int64(20000), pay.Widget.Amount)
	assert.Equal(t, "order_1", pay.Widget.OrderID)
	assert.Equal(t, "Asha", pay.Widget.Prefill.Name)

	rec = h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/payment-success",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conf := decode[checkout.Confirmation](t, rec)
	assert.Equal(t, int64(11), conf.Booking.ID)
	assert.Equal(t, "payment-9", h.upstream.idempotencyKey)

	rec = h.do(t, http.MethodGet, "/api/checkout/"+view.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, checkout.RouteCatalog, decode[redirectBody](t, rec).Redirect)
}

func TestCheckoutWithoutDraftRedirectsToCatalog(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")

	rec := h.do(t, http.MethodPost, "/api/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, checkout.RouteCatalog, decode[redirectBody](t, rec).Redirect)
}

func TestCheckoutRejectsReversedStay(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")

	rec := h.do(t, http.MethodPost, "/api/checkout",
		`{"room":{"roomId":2,"roomPrice":100},"checkInDate":"2024-05-03","checkOutDate":"2024-05-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckoutWidgetCancelled(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")

	view := decode[checkout.View](t, h.do(t, http.MethodPost, "/api/checkout", draftBody))
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/pay", "").Code)

	rec := h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/payment-failure", `{"cancelled":true}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode[paymentFailureBody](t, rec)
	assert.True(t, body.Cancelled)
	assert.Equal(t, checkout.RouteFailure, body.Redirect)
	require.NotNil(t, body.Failure)
	assert.Equal(t, int64(2), body.Failure.Draft.Room.ID)
	assert.Zero(t, h.upstream.bookings)

	rec = h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/pay", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutBookingFailsAfterPayment(t *testing.T) {
	h := newHarness(t)
	h.upstream.bookRoomStatus = http.StatusConflict
	h.login(t, "guest@example.com")

	view := decode[checkout.View](t, h.do(t, http.MethodPost, "/api/checkout", draftBody))
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/pay", "").Code)

	rec := h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/payment-success",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[postPaymentBody](t, rec)
	assert.Equal(t, int64(9), body.PaymentID)
	assert.Equal(t, checkout.RouteBookings, body.Redirect)
	assert.Equal(t, "Room already booked", body.Error)
	assert.Equal(t, 1, h.upstream.bookings)
}

func TestPaymentSuccessRequiresGatewayFields(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")
	view := decode[checkout.View](t, h.do(t, http.MethodPost, "/api/checkout", draftBody))

	rec := h.do(t, http.MethodPost, "/api/checkout/"+view.ID+"/payment-success", `{"razorpay_order_id":"order_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbandonCheckout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")
	view := decode[checkout.View](t, h.do(t, http.MethodPost, "/api/checkout", draftBody))

	rec := h.do(t, http.MethodDelete, "/api/checkout/"+view.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.RouteCatalog, decode[redirectBody](t, rec).Redirect)

	rec = h.do(t, http.MethodDelete, "/api/checkout/"+view.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMyBookingsAndPayments(t *testing.T) {
	h := newHarness(t)
	h.login(t, "guest@example.com")

	rec := h.do(t, http.MethodGet, "/api/bookings/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = h.do(t, http.MethodGet, "/api/payments/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = h.do(t, http.MethodGet, "/api/payments/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminExportBookings(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@example.com")

	rec := h.do(t, http.MethodGet, "/api/admin/bookings/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "bookings_20240501_093000.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestAdminUploadImage(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "room.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpegdata"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "http://cdn.example.com/room.jpg", decode[map[string]string](t, rec)["imageUrl"])
}
