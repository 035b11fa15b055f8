// Package eventlog is the durability boundary of the reservation
// core.  It keeps an append-only, ordered record of every accepted
// area mutation and every terminal reservation outcome as JSON lines;
// a mutation counts as committed only once its line has been synced
// to the file.  Replaying the file from empty deterministically
// rebuilds the area store and the reservation set.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eventhall/seat-reservation/internal/model"
)

// Entry types, one per line of the log.
const (
	EntryAreaInitialized = "area_initialized"
	EntryMutationApplied = "mutation_applied"
	EntryOutcomeRecorded = "outcome_recorded"
)

// InitRecord captures the creation of an area partition.
type InitRecord struct {
	EventID string     `json:"event_id"`
	Area    model.Area `json:"area"`
}

// MutationRecord captures one accepted conditional update.  The base
// version pins the record to the exact snapshot it was applied
// against, which is what makes replay idempotent: a record whose base
// version no longer matches has already been applied.
type MutationRecord struct {
	EventID     string               `json:"event_id"`
	AreaID      string               `json:"area_id"`
	BaseVersion uint64               `json:"base_version"`
	Mutations   []model.SeatMutation `json:"mutations"`
}

// OutcomeRecord pairs the terminal outcome with the full reservation
// record so replay can rebuild both.
type OutcomeRecord struct {
	Reservation model.Reservation        `json:"reservation"`
	Outcome     model.ReservationOutcome `json:"outcome"`
}

// Entry is one line of the log.  Exactly one of the payload pointers
// is set, matching Type.
type Entry struct {
	Type     string          `json:"type"`
	Init     *InitRecord     `json:"init,omitempty"`
	Mutation *MutationRecord `json:"mutation,omitempty"`
	Outcome  *OutcomeRecord  `json:"outcome,omitempty"`
}

// Log appends entries to a single file.  Appends are serialized by a
// mutex and synced before they are acknowledged, giving the
// write-ahead ordering the store contract requires.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (or creates) the log file for appending.  Parent
// directories are created as needed.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Log{path: path, f: f}, nil
}

// Path returns the file the log writes to.
func (l *Log) Path() string { return l.path }

// Close syncs and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.f.Sync(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

func (l *Log) append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	line = append(line, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

// AreaInitialized records the creation of an area.  It implements
// the store's write-ahead journal.
func (l *Log) AreaInitialized(status *model.AreaStatus) error {
	return l.append(Entry{
		Type: EntryAreaInitialized,
		Init: &InitRecord{
			EventID: status.EventID,
			Area: model.Area{
				AreaID:     status.AreaID,
				PriceCents: status.PriceCents,
				RowCount:   status.RowCount,
				ColCount:   status.ColCount,
			},
		},
	})
}

// MutationApplied records an accepted conditional update.  It
// implements the store's write-ahead journal.
func (l *Log) MutationApplied(eventID, areaID string, baseVersion uint64, mutations []model.SeatMutation) error {
	return l.append(Entry{
		Type: EntryMutationApplied,
		Mutation: &MutationRecord{
			EventID:     eventID,
			AreaID:      areaID,
			BaseVersion: baseVersion,
			Mutations:   mutations,
		},
	})
}

// OutcomeRecorded records the terminal outcome of a reservation along
// with its lifecycle record.
func (l *Log) OutcomeRecorded(reservation model.Reservation, outcome model.ReservationOutcome) error {
	return l.append(Entry{
		Type:    EntryOutcomeRecorded,
		Outcome: &OutcomeRecord{Reservation: reservation, Outcome: outcome},
	})
}
