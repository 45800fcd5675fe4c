package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer publishes lead-captured events. It satisfies the pipeline's
// notifier contract so a broker outage never blocks capture.
type Producer struct {
	Ch publisher
}

func NewProducer(ch *amqp.Channel) *Producer {
	return &Producer{Ch: ch}
}

func (p *Producer) NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	return p.PublishLeadCaptured(ctx, event)
}

func (p *Producer) PublishLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "encode lead event")
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.LeadID,
			Timestamp:    event.OccurredAt,
			Type:         "lead.captured",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return eris.Wrapf(err, "publish lead event %s", event.LeadID)
	}

	return nil
}
