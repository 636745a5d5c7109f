package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// BookingConfirmedEvent is the message body sent to the booking.confirmed queue.
type BookingConfirmedEvent struct {
	BookingID   int64     `json:"booking_id"`
	PaymentID   int64     `json:"payment_id"`
	UserID      int64     `json:"user_id"`
	RoomID      int64     `json:"room_id"`
	RoomNumber  string    `json:"room_number"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	AmountPaid  float64   `json:"amount_paid"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel and returns a func closing it with its connection.
type Dialer func(url string) (Channel, func() error, error)

// DialAMQP dials a broker connection and opens one channel on it.
func DialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, conn.Close, nil
}

// AMQPPublisher forwards confirmed bookings to RabbitMQ.
type AMQPPublisher struct {
	url     string
	queue   string
	dial    Dialer
	timeout time.Duration
	logger  zerolog.Logger
}

func NewAMQPPublisher(url, queue string, dial Dialer, logger zerolog.Logger) *AMQPPublisher {
	if dial == nil {
		dial = DialAMQP
	}
	return &AMQPPublisher{url: url, queue: queue, dial: dial, timeout: 5 * time.Second, logger: logger}
}

// Attach subscribes the publisher to CheckoutSucceeded on bus.
// Broker failures are logged and never reach the checkout.
func (p *AMQPPublisher) Attach(bus *EventBus) {
	bus.Subscribe(CheckoutSucceeded, func(event Event) error {
		payload, ok := event.Payload.(CheckoutPayload)
		if !ok {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, confirmedFrom(payload, event.CreatedAt)); err != nil {
			p.logger.Error().Err(err).Int64("payment_id", payload.PaymentID).Msg("rabbitmq: booking confirmed publish failed")
		}
		return nil
	})
}

func confirmedFrom(p CheckoutPayload, at time.Time) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:   p.BookingID,
		PaymentID:   p.PaymentID,
		UserID:      p.Draft.UserID,
		RoomID:      p.Draft.Room.ID,
		RoomNumber:  p.Draft.Room.Number,
		CheckIn:     p.Draft.CheckIn.String(),
		CheckOut:    p.Draft.CheckOut.String(),
		AmountPaid:  p.Amount,
		ConfirmedAt: at.UTC(),
	}
}

// Publish sends one persistent message to the queue, declaring it first.
func (p *AMQPPublisher) Publish(ctx context.Context, event BookingConfirmedEvent) error {
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
		_ = closeConn()
	}()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
