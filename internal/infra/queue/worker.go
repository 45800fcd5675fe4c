package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// EventHandler receives decoded lead events. The notifier fan-out
// (confirmation email, WhatsApp ack) is plugged in here.
type EventHandler interface {
	NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel        consumer
	Handler        EventHandler
	HandlerTimeout time.Duration
	log            *zap.Logger
}

func NewWorker(ch *amqp.Channel, handler EventHandler) *Worker {
	return &Worker{
		Channel:        ch,
		Handler:        handler,
		HandlerTimeout: 30 * time.Second,
		log:            zap.L().Named("queue.worker"),
	}
}

// Start consumes the queue until ctx is cancelled or the delivery channel
// closes. Failed events are rejected without requeue and land in the DLQ.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return eris.Wrapf(err, "register consumer on %s", queueName)
	}

	w.logger().Info("lead event worker started", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return eris.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	log := w.logger()

	var event entity.LeadCapturedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Warn("rejecting malformed lead event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	timeout := w.HandlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := w.Handler.NotifyLeadCaptured(hctx, event); err != nil {
		log.Warn("lead event handler failed",
			zap.String("lead_id", event.LeadID),
			zap.String("channel", string(event.Channel)),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *Worker) logger() *zap.Logger {
	if w.log != nil {
		return w.log
	}
	return zap.L()
}
