// Package coordinator drives the reservation lifecycle.  Every
// request is routed to a single sequential worker per
// (event_id, area_id) partition, so the read-allocate-write span for
// one area is never concurrent with itself while distinct areas
// proceed fully in parallel.  Requests on one partition are processed
// in arrival order.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/repository"
	"github.com/eventhall/seat-reservation/internal/store"
	"github.com/eventhall/seat-reservation/internal/strategy"
)

// OutcomeJournal records terminal outcomes durably.  The event log
// implements it.
type OutcomeJournal interface {
	OutcomeRecorded(reservation model.Reservation, outcome model.ReservationOutcome) error
}

// OutcomePublisher delivers terminal outcomes to downstream
// consumers.  Publishing is best effort: a delivery failure is logged
// and never blocks or rewrites the recorded outcome.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome model.ReservationOutcome) error
}

// SnapshotSink receives the latest snapshot after every accepted
// mutation.  The redis cache implements it so reads can be served
// without hitting the store.
type SnapshotSink interface {
	Put(ctx context.Context, status *model.AreaStatus)
}

// Property bundles the coordinator dependencies.  Journal, Publisher
// and Snapshots are optional; the zero MaxAttempts falls back to the
// default bound.
type Property struct {
	Logger       *logrus.Logger
	AreaStore    store.AreaStateStore
	Reservations ReservationStore
	Journal      OutcomeJournal
	Publisher    OutcomePublisher
	Snapshots    SnapshotSink
	MaxAttempts  int
}

// defaultMaxAttempts bounds the read-allocate-write retry loop on
// version conflicts before a request is rejected as contended.
const defaultMaxAttempts = 3

// Coordinator owns reservation lifecycle records and serializes all
// area mutations through per-partition workers.
type Coordinator struct {
	logger       *logrus.Logger
	areaStore    store.AreaStateStore
	reservations ReservationStore
	journal      OutcomeJournal
	publisher    OutcomePublisher
	snapshots    SnapshotSink
	maxAttempts  int

	mu      sync.Mutex
	workers map[string]*areaWorker
	closed  bool
	wg      sync.WaitGroup
}

// New constructs a Coordinator from the given properties.
func New(p Property) *Coordinator {
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return &Coordinator{
		logger:       p.Logger,
		areaStore:    p.AreaStore,
		reservations: p.Reservations,
		journal:      p.Journal,
		publisher:    p.Publisher,
		snapshots:    p.Snapshots,
		maxAttempts:  p.MaxAttempts,
		workers:      make(map[string]*areaWorker),
	}
}

// areaWorker executes jobs for one partition strictly in FIFO order.
type areaWorker struct {
	jobs chan func()
}

// workerQueueDepth bounds how many requests may wait per partition
// before submission blocks.
const workerQueueDepth = 256

// Close drains the workers.  Pending jobs run to completion; new
// submissions fail after Close.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, w := range c.workers {
		close(w.jobs)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// dispatch runs job on the partition worker for key and waits for it
// to finish or for ctx to be cancelled.  The job itself always runs
// to completion so partial processing never leaks into area state.
// The enqueue happens under the mutex: Close must not be able to
// close the worker channel between the closed check and the send.
func (c *Coordinator) dispatch(ctx context.Context, key string, job func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		job()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("coordinator is closed")
	}
	w, ok := c.workers[key]
	if !ok {
		w = &areaWorker{jobs: make(chan func(), workerQueueDepth)}
		c.workers[key] = w
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for job := range w.jobs {
				job()
			}
		}()
	}
	select {
	case w.jobs <- wrapped:
		c.mu.Unlock()
	case <-ctx.Done():
		c.mu.Unlock()
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterEvent validates the event and initializes one area
// partition per area.  Duplicate event registration surfaces
// store.ErrAlreadyExists from the first colliding area.
func (c *Coordinator) RegisterEvent(ctx context.Context, ev *model.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	for _, area := range ev.Areas {
		if _, err := c.areaStore.Initialize(ctx, ev.EventID, area); err != nil {
			return fmt.Errorf("initialize area %s: %w", model.AreaKey(ev.EventID, area.AreaID), err)
		}
	}
	c.logger.WithFields(logrus.Fields{
		"event_id": ev.EventID,
		"name":     ev.EventName,
		"artist":   ev.Artist,
		"areas":    len(ev.Areas),
	}).Info("event registered")
	return nil
}

// GetReservation returns the lifecycle record for the id.
func (c *Coordinator) GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	rec, _, err := c.reservations.Get(ctx, reservationID)
	return rec, err
}

// Submit runs one reservation request to its terminal outcome.  The
// call is idempotent: an id that already reached a terminal status
// returns the recorded outcome unchanged, without touching area
// state.  A storage failure leaves the reservation pending and is
// returned as an error; the caller may resubmit the same id.
func (c *Coordinator) Submit(ctx context.Context, req *model.Reservation) (*model.ReservationOutcome, error) {
	if req.ReservationID == "" {
		return nil, errors.New("reservation id is required")
	}
	if _, existing, err := c.reservations.Get(ctx, req.ReservationID); err == nil && existing != nil {
		return existing, nil
	} else if err != nil && !errors.Is(err, repository.ErrReservationNotFound) {
		return nil, err
	}

	req.Status = model.ReservationPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if err := c.reservations.Put(ctx, req, nil); err != nil {
		return nil, fmt.Errorf("record pending reservation: %w", err)
	}

	var (
		outcome *model.ReservationOutcome
		procErr error
	)
	key := model.AreaKey(req.EventID, req.AreaID)
	if err := c.dispatch(ctx, key, func() {
		outcome, procErr = c.process(req)
	}); err != nil {
		return nil, err
	}
	return outcome, procErr
}

// process is the serialized read-allocate-write cycle.  It runs on
// the partition worker, so at most one invocation per area is active
// at a time.
func (c *Coordinator) process(req *model.Reservation) (*model.ReservationOutcome, error) {
	// The same id may have been queued twice; the second pass is a
	// no-op returning the recorded outcome.
	ctx := context.Background()
	if _, existing, err := c.reservations.Get(ctx, req.ReservationID); err == nil && existing != nil {
		return existing, nil
	}

	alloc, err := strategy.For(req.Type)
	if err != nil {
		return c.reject(ctx, req, err)
	}
	allocReq := strategy.Request{
		NumSeats: req.NumSeats,
		Seats:    req.RequestSeats,
		Seed:     seedFor(req.ReservationID),
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		snapshot, err := c.areaStore.Read(ctx, req.EventID, req.AreaID)
		if errors.Is(err, store.ErrNotFound) {
			return c.reject(ctx, req, &strategy.AllocationError{
				Reason:  model.ReasonUnknownArea,
				Message: "unknown area: " + model.AreaKey(req.EventID, req.AreaID),
			})
		}
		if err != nil {
			return nil, fmt.Errorf("read area %s: %w", model.AreaKey(req.EventID, req.AreaID), err)
		}

		seats, err := alloc(snapshot, allocReq)
		if err != nil {
			return c.reject(ctx, req, err)
		}

		mutations := make([]model.SeatMutation, len(seats))
		for i, ref := range seats {
			mutations[i] = model.SeatMutation{
				Seat:          ref,
				State:         model.SeatReserved,
				ReservationID: req.ReservationID,
			}
		}
		next, err := c.areaStore.CompareAndApply(ctx, req.EventID, req.AreaID, snapshot.Version, mutations)
		if errors.Is(err, store.ErrVersionConflict) {
			// Should not happen under per-partition serialization, but
			// defended against: reload and retry.
			c.logger.WithFields(logrus.Fields{
				"reservation_id": req.ReservationID,
				"area":           model.AreaKey(req.EventID, req.AreaID),
				"attempt":        attempt + 1,
			}).Warn("version conflict during allocation")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("apply allocation for %s: %w", req.ReservationID, err)
		}
		if c.snapshots != nil {
			c.snapshots.Put(ctx, next)
		}
		return c.confirm(ctx, req, seats)
	}
	return c.reject(ctx, req, &strategy.AllocationError{
		Reason:  model.ReasonContended,
		Message: fmt.Sprintf("gave up after %d version conflicts", c.maxAttempts),
	})
}

func (c *Coordinator) confirm(ctx context.Context, req *model.Reservation, seats []model.SeatRef) (*model.ReservationOutcome, error) {
	req.Status = model.ReservationConfirmed
	req.RequestSeats = seats
	req.ResolvedAt = time.Now().UTC()
	outcome := &model.ReservationOutcome{
		ReservationID: req.ReservationID,
		Status:        model.ReservationConfirmed,
		Seats:         seats,
	}
	if err := c.finalize(ctx, req, outcome); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"reservation_id": req.ReservationID,
		"area":           model.AreaKey(req.EventID, req.AreaID),
		"seats":          len(seats),
	}).Info("reservation confirmed")
	return outcome, nil
}

func (c *Coordinator) reject(ctx context.Context, req *model.Reservation, cause error) (*model.ReservationOutcome, error) {
	var allocErr *strategy.AllocationError
	if !errors.As(cause, &allocErr) {
		allocErr = &strategy.AllocationError{Reason: model.ReasonInvalidRequest, Message: cause.Error()}
	}
	req.Status = model.ReservationRejected
	req.ResolvedAt = time.Now().UTC()
	outcome := &model.ReservationOutcome{
		ReservationID: req.ReservationID,
		Status:        model.ReservationRejected,
		Reason:        allocErr.Reason,
		Message:       allocErr.Message,
	}
	if err := c.finalize(ctx, req, outcome); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"reservation_id": req.ReservationID,
		"area":           model.AreaKey(req.EventID, req.AreaID),
		"reason":         allocErr.Reason,
	}).Info("reservation rejected")
	return outcome, nil
}

// finalize records the terminal state durably, then publishes it.
// The journal append happens before the outcome becomes visible in
// the reservation store so replay can never miss a terminal record
// that a caller has observed.
func (c *Coordinator) finalize(ctx context.Context, req *model.Reservation, outcome *model.ReservationOutcome) error {
	if c.journal != nil {
		if err := c.journal.OutcomeRecorded(*req, *outcome); err != nil {
			return fmt.Errorf("journal outcome for %s: %w", req.ReservationID, err)
		}
	}
	if err := c.reservations.Put(ctx, req, outcome); err != nil {
		return fmt.Errorf("record outcome for %s: %w", req.ReservationID, err)
	}
	if c.publisher != nil {
		if err := c.publisher.PublishOutcome(ctx, *outcome); err != nil {
			c.logger.WithError(err).WithField("reservation_id", req.ReservationID).
				Warn("failed to publish outcome")
		}
	}
	return nil
}

// seedFor derives the deterministic allocation seed from the
// reservation id, so re-processing the same request selects the same
// seats from the same snapshot.
func seedFor(reservationID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(reservationID))
	return int64(h.Sum64())
}
