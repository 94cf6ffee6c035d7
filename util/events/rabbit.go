// Package events publishes loan lifecycle events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"schoollibrary/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher is implemented by Rabbit and by test doubles.
type Publisher interface {
	PublishLoan(ctx context.Context, ev model.LoanEvent) error
}

type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbit returns nil without error when url is empty; a nil *Rabbit publishes nothing.
func NewRabbit(url, exchange string) (*Rabbit, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *Rabbit) PublishLoan(ctx context.Context, ev model.LoanEvent) error {
	if r == nil || r.ch == nil {
		return nil
	}
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx, r.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.LoanID + ":" + string(ev.Type),
		Body:         body,
		Timestamp:    time.Now(),
	})
}

func (r *Rabbit) Close() error {
	if r == nil || r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) PublishLoan(context.Context, model.LoanEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []model.LoanEvent
	Err    error
}

func (r *Recorder) PublishLoan(_ context.Context, ev model.LoanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, ev)
	return nil
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []model.LoanEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LoanEventType, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Type)
	}
	return out
}

// Encode is the wire form used for event bodies.
func Encode(ev model.LoanEvent) ([]byte, error) { return json.Marshal(ev) }
