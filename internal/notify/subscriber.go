package notify

import (
	"context"
	"encoding/json"

	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/connections/rabbitmq"
	"smart-bartender/internal/domain"
	"smart-bartender/internal/events"
)

const queueName = "bartender_notifications"

// Run consumes queue lifecycle events from the fanout and logs them.
// Blocks until ctx is canceled.
func Run(ctx context.Context, client *rabbitmq.Client, log *logger.Logger) error {
	msgs, err := client.Consume(events.Exchange, queueName, "notification-subscriber")
	if err != nil {
		return err
	}
	log.Info("subscriber_started", map[string]any{"queue": queueName})

	for {
		select {
		case <-ctx.Done():
			log.Info("subscriber_stopped", nil)
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev domain.QueueEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				// Unparseable payload: drop, do not requeue.
				_ = d.Nack(false, false)
				continue
			}
			log.Info("queue_event", map[string]any{
				"type":      ev.Type,
				"order_id":  ev.OrderID,
				"username":  ev.Username,
				"drink":     ev.DrinkName,
				"remaining": ev.Remaining,
				"est_sec":   ev.EstSeconds,
				"occurred":  ev.OccurredAt,
			})
			_ = d.Ack(false)
		}
	}
}
