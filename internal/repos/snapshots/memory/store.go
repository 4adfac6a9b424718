package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
)

var _ snapshots.Store = (*Store)(nil)

var ErrInjected = errors.New("injected save failure")

// Store keeps records in process memory. It backs tests and runs without
// a database.
type Store struct {
	mu      sync.RWMutex
	records map[snapshots.Key]snapshots.Record
	failN   int
	saves   int
}

func New() *Store {
	return &Store{records: make(map[snapshots.Key]snapshots.Record)}
}

// FailNextSaves makes the next n calls to Save fail with ErrInjected.
func (s *Store) FailNextSaves(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failN = n
}

func (s *Store) Save(ctx context.Context, upserts []snapshots.Record, deletes []snapshots.Key) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failN > 0 {
		s.failN--
		return ErrInjected
	}

	for _, r := range upserts {
		r.Payload = append([]byte(nil), r.Payload...)
		s.records[r.Key()] = r
	}

	for _, k := range deletes {
		delete(s.records, k)
	}

	s.saves++

	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]snapshots.Record, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]snapshots.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID.String() < out[j].PlayerID.String()
		}

		return out[i].Kind < out[j].Kind
	})

	return out, nil
}

// Get returns a single record, for assertions.
func (s *Store) Get(k snapshots.Key) (snapshots.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[k]

	return r, ok
}

// Saves counts successful Save calls.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}
