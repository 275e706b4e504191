package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Queue publishes JSON mail messages to a durable queue on the default exchange.
type Queue struct {
	ch      Channel
	name    string
	timeout time.Duration
}

func NewQueue(ch Channel, name string, timeout time.Duration) *Queue {
	return &Queue{ch: ch, name: name, timeout: timeout}
}

// Declare creates the durable queue when it does not exist yet.
func Declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (q *Queue) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	return q.ch.PublishWithContext(ctx, "", q.name, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Dispatcher publishes in the background so request handlers do not wait on
// the broker. Messages that cannot be queued are logged and dropped.
type Dispatcher struct {
	pub    Publisher
	logger *slog.Logger
	msgs   chan domain.MailMessage
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(pub Publisher, logger *slog.Logger, buffer int) *Dispatcher {
	d := &Dispatcher{
		pub:    pub,
		logger: logger,
		msgs:   make(chan domain.MailMessage, buffer),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for msg := range d.msgs {
		if err := d.pub.Publish(context.Background(), msg); err != nil {
			d.logger.Error("failed to queue mail", slog.String("type", string(msg.Type)), slog.String("to", msg.To), slog.String("error", err.Error()))
		}
	}
}

// Send queues msg without blocking; it reports false when the buffer is full.
func (d *Dispatcher) Send(msg domain.MailMessage) bool {
	select {
	case d.msgs <- msg:
		return true
	default:
		d.logger.Warn("mail buffer full", slog.String("type", string(msg.Type)), slog.String("to", msg.To))
		return false
	}
}

// Publish implements Publisher on top of Send.
func (d *Dispatcher) Publish(_ context.Context, msg domain.MailMessage) error {
	if !d.Send(msg) {
		return ErrBufferFull
	}
	return nil
}

// Close drains the buffer and waits for the worker to exit.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.msgs)
	})
	d.wg.Wait()
}
