package mailer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker sends every delivered message. Malformed and unsupported messages are
// dropped; SMTP failures are requeued.
type Worker struct {
	sender  Sender
	from    string
	timeout time.Duration
	logger  *slog.Logger
}

func NewWorker(sender Sender, from string, timeout time.Duration, logger *slog.Logger) *Worker {
	return &Worker{sender: sender, from: from, timeout: timeout, logger: logger}
}

// Run blocks until ctx is cancelled or the delivery channel is closed.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.Handle(ctx, d)
		}
	}
}

func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	env, err := Decode(d.Body)
	if err != nil {
		w.logger.Error("failed to decode mail message", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	msg, err := Build(w.from, env)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrUnknownType) {
			level = slog.LevelWarn
		}
		w.logger.Log(ctx, level, "failed to build mail", slog.String("type", string(env.Type)), slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.sender.DialAndSendWithContext(sendCtx, msg); err != nil {
		w.logger.Error("failed to send mail", slog.String("to", env.To), slog.String("error", err.Error()))
		_ = d.Nack(false, true)
		return
	}

	w.logger.Info("mail sent", slog.String("type", string(env.Type)), slog.String("to", env.To))
	_ = d.Ack(false)
}
