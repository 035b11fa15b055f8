package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
)

// Submitter is the part of the coordinator the consumer needs: run a
// request to its terminal outcome.
type Submitter interface {
	Submit(ctx context.Context, req *model.Reservation) (*model.ReservationOutcome, error)
}

// StartReservationConsumer connects to the broker, declares the
// durable request queue and consumes it until ctx is cancelled.  Each
// message is submitted to the coordinator; the per-area workers
// behind Submit preserve arrival order for a given area.  The
// function runs a reconnect loop with exponential backoff and only
// returns once the context is done.
func StartReservationConsumer(ctx context.Context, url string, submitter Submitter, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.WithError(err).Warnf("reservation-consumer: dial failed; retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, submitter, logger); err != nil {
			logger.WithError(err).Warn("reservation-consumer: consume loop ended; reconnecting")
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		_ = conn.Close()
		return
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, submitter Submitter, logger *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch stays modest; ordering per area is enforced by the
	// coordinator workers, not by the prefetch window.
	if err := ch.Qos(50, 0, false); err != nil {
		logger.WithError(err).Warn("reservation-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(RequestQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(RequestQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleDelivery(ctx, d.Body, submitter, logger); err != nil {
				var malformed *malformedRequest
				if errors.As(err, &malformed) {
					logger.WithError(err).Warn("reservation-consumer: dropping malformed request")
					_ = d.Nack(false, false) // do not requeue, it will never parse
					continue
				}
				logger.WithError(err).Warn("reservation-consumer: submit failed; requeueing")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// malformedRequest marks payloads that can never be processed.
type malformedRequest struct{ err error }

func (m *malformedRequest) Error() string { return m.err.Error() }
func (m *malformedRequest) Unwrap() error { return m.err }

func handleDelivery(ctx context.Context, body []byte, submitter Submitter, logger *logrus.Logger) error {
	var req ReservationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return &malformedRequest{err: fmt.Errorf("unmarshal: %w", err)}
	}
	if req.EventID == "" || req.AreaID == "" {
		return &malformedRequest{err: errors.New("missing event_id or area_id")}
	}
	rType, err := model.ParseReservationType(req.Type)
	if err != nil {
		return &malformedRequest{err: err}
	}
	if req.ReservationID == "" {
		req.ReservationID = uuid.NewString()
	}

	outcome, err := submitter.Submit(ctx, &model.Reservation{
		ReservationID: req.ReservationID,
		UserID:        req.UserID,
		EventID:       req.EventID,
		AreaID:        req.AreaID,
		NumSeats:      req.NumSeats,
		Type:          rType,
		RequestSeats:  req.Seats,
	})
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"reservation_id": outcome.ReservationID,
		"status":         outcome.Status,
	}).Info("reservation-consumer: request processed")
	return nil
}
