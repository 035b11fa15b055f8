package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
)

// Publisher delivers reservation outcomes to the outcome queue.  It
// dials per publish and tries to never panic; errors are logged and
// returned so the caller can treat delivery as best effort without
// interrupting the reservation flow.
type Publisher struct {
	url    string
	logger *logrus.Logger
}

// NewPublisher returns a Publisher for the given broker URL.
func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{url: url, logger: logger}
}

// PublishOutcome sends the outcome to the outcome queue as a
// persistent JSON message.  The queue is declared durable so messages
// survive broker restarts.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome model.ReservationOutcome) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WithError(err).Warn("rabbitmq: dial failed")
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).Warn("rabbitmq: channel open failed")
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so publishing works regardless of start order.
	if _, err := ch.QueueDeclare(OutcomeQueueName, true, false, false, false, nil); err != nil {
		p.logger.WithError(err).Warn("rabbitmq: queue declare failed")
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    outcome.ReservationID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", OutcomeQueueName, false, false, pub); err != nil {
		p.logger.WithError(err).Warn("rabbitmq: publish failed")
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}
