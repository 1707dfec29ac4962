package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"smart-bartender/internal/connections/rabbitmq"
	"smart-bartender/internal/domain"
)

// Exchange carries queue lifecycle notifications. Fanout: every subscriber
// sees every event. The dispensing worker never consumes from here; it
// polls HTTP.
const Exchange = "bartender_events"

// Publisher emits queue lifecycle events. Implementations must be safe to
// call from the locked queue service; failures are the caller's to log and
// ignore (events are best effort).
type Publisher interface {
	Publish(ctx context.Context, ev domain.QueueEvent) error
}

// Noop drops every event. Used when RabbitMQ is disabled and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, domain.QueueEvent) error { return nil }

type AMQPPublisher struct {
	client *rabbitmq.Client
}

func NewAMQPPublisher(client *rabbitmq.Client) (*AMQPPublisher, error) {
	if err := client.Channel().ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{client: client}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev domain.QueueEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Exchange, "", body, amqp.Table{
		"x-source": "queue-service",
	})
}
