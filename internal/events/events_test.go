package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayease/internal/model"
)

func TestEventBusDeliversByType(t *testing.T) {
	bus := NewEventBus()
	var got []Event
	bus.Subscribe(CatalogHotels, func(e Event) error {
		got = append(got, e)
		return nil
	})

	bus.Publish(Event{Type: CatalogHotels, Payload: 3})
	bus.Publish(Event{Type: BookingsLoaded, Payload: 1})

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Payload)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestEventBusReportsHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var reported error
	bus.OnError(func(_ Event, err error) { reported = err })
	bus.Subscribe(SessionChanged, func(Event) error { return errors.New("boom") })

	bus.Publish(Event{Type: SessionChanged})
	assert.EqualError(t, reported, "boom")
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Publish(Event{Type: CheckoutFailed}) })
}

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func fakeDialer(ch *fakeChannel) Dialer {
	return func(string) (Channel, func() error, error) {
		return ch, func() error { return nil }, nil
	}
}

func TestAMQPPublisherForwardsCheckoutSucceeded(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewAMQPPublisher("amqp://test", "booking.confirmed", fakeDialer(ch), zerolog.New(io.Discard))
	bus := NewEventBus()
	pub.Attach(bus)

	bus.Publish(Event{Type: CheckoutSucceeded, Payload: CheckoutPayload{
		PaymentID: 9,
		BookingID: 11,
		Amount:    200,
		Draft: model.BookingDraft{
			UserID:   1,
			Room:     model.Room{ID: 2, Number: "101", Price: 100},
			CheckIn:  model.NewDate(2024, 5, 1),
			CheckOut: model.NewDate(2024, 5, 3),
		},
	}})

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"booking.confirmed"}, ch.declared)
	assert.Equal(t, []string{"booking.confirmed"}, ch.keys)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.True(t, ch.closed)

	var body BookingConfirmedEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &body))
	assert.Equal(t, int64(11), body.BookingID)
	assert.Equal(t, int64(9), body.PaymentID)
	assert.Equal(t, "2024-05-01", body.CheckIn)
	assert.Equal(t, 200.0, body.AmountPaid)
}

func TestAMQPPublisherSwallowsBrokerFailure(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("connection reset")}
	pub := NewAMQPPublisher("amqp://test", "booking.confirmed", fakeDialer(ch), zerolog.New(io.Discard))
	bus := NewEventBus()
	var reported error
	bus.OnError(func(_ Event, err error) { reported = err })
	pub.Attach(bus)

	bus.Publish(Event{Type: CheckoutSucceeded, Payload: CheckoutPayload{PaymentID: 1}})
	assert.NoError(t, reported)

	err := pub.Publish(context.Background(), BookingConfirmedEvent{})
	assert.ErrorContains(t, err, "connection reset")
}

func TestAMQPPublisherDialFailure(t *testing.T) {
	dial := func(string) (Channel, func() error, error) { return nil, nil, errors.New("refused") }
	pub := NewAMQPPublisher("amqp://test", "booking.confirmed", dial, zerolog.New(io.Discard))
	assert.EqualError(t, pub.Publish(context.Background(), BookingConfirmedEvent{}), "refused")
}
