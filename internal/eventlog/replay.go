package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/store"
)

// ReplayResult is the state rebuilt from a log: a populated in-memory
// area store plus the reservation records and outcomes keyed by
// reservation id.
type ReplayResult struct {
	Store        *store.MemoryStore
	Reservations map[string]*model.Reservation
	Outcomes     map[string]*model.ReservationOutcome
}

// Replay folds the log at path into fresh state.  The fold is
// deterministic and idempotent: duplicate init entries are skipped,
// mutation entries apply only when their base version matches the
// current snapshot, and only the first outcome per reservation id is
// kept.  A missing file replays to empty state, which is how a brand
// new deployment starts.
func Replay(path string) (*ReplayResult, error) {
	result := &ReplayResult{
		Store:        store.NewMemoryStore(nil),
		Reservations: make(map[string]*model.Reservation),
		Outcomes:     make(map[string]*model.ReservationOutcome),
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log for replay: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	// Grids for large areas can make long lines; allow up to 16 MiB.
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode log line %d: %w", lineNo, err)
		}
		if err := result.apply(ctx, &entry); err != nil {
			return nil, fmt.Errorf("replay log line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	return result, nil
}

func (r *ReplayResult) apply(ctx context.Context, entry *Entry) error {
	switch entry.Type {
	case EntryAreaInitialized:
		if entry.Init == nil {
			return errors.New("init entry without payload")
		}
		_, err := r.Store.Initialize(ctx, entry.Init.EventID, entry.Init.Area)
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil // duplicate init, already applied
		}
		return err
	case EntryMutationApplied:
		if entry.Mutation == nil {
			return errors.New("mutation entry without payload")
		}
		m := entry.Mutation
		current, err := r.Store.Read(ctx, m.EventID, m.AreaID)
		if err != nil {
			return err
		}
		if current.Version != m.BaseVersion {
			return nil // already applied or superseded
		}
		_, err = r.Store.CompareAndApply(ctx, m.EventID, m.AreaID, m.BaseVersion, m.Mutations)
		if errors.Is(err, store.ErrVersionConflict) {
			return nil
		}
		return err
	case EntryOutcomeRecorded:
		if entry.Outcome == nil {
			return errors.New("outcome entry without payload")
		}
		id := entry.Outcome.Outcome.ReservationID
		// The reservation record follows the latest entry (fulfillment
		// markers update it), while the first terminal outcome wins:
		// re-processing must never emit a different outcome.
		res := entry.Outcome.Reservation
		r.Reservations[id] = &res
		if _, seen := r.Outcomes[id]; !seen {
			out := entry.Outcome.Outcome
			r.Outcomes[id] = &out
		}
		return nil
	default:
		return fmt.Errorf("unknown entry type %q", entry.Type)
	}
}
