package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
	"github.com/google/uuid"
)

// SchemaVersion is written with every record. Records from a newer
// version refuse to load.
const SchemaVersion = 1

var ErrNewerSchema = errors.New("record written by a newer schema")

type Metrics interface {
	RecordSave(took time.Duration, ok bool)
	SetDirty(n int)
}

type binding struct {
	snapshot func(owner uuid.UUID) (json.RawMessage, bool, error)
	restore  func(owner uuid.UUID, payload json.RawMessage) error
}

// Saver writes dirty records to the store and loads them back at startup.
type Saver struct {
	store   snapshots.Store
	tracker *Tracker
	metrics Metrics
	now     func() time.Time

	flushMu sync.Mutex
	kinds   map[string]binding
}

func NewSaver(store snapshots.Store, tracker *Tracker, metrics Metrics) *Saver {
	return &Saver{
		store:   store,
		tracker: tracker,
		metrics: metrics,
		now:     time.Now,
		kinds:   make(map[string]binding),
	}
}

// Register binds a record kind to a component's snapshot and restore
// functions. The state type T is stored as JSON.
func Register[T any](s *Saver, kind string, snapshot func(uuid.UUID) (T, bool), restore func(uuid.UUID, T) error) {
	s.kinds[kind] = binding{
		snapshot: func(owner uuid.UUID) (json.RawMessage, bool, error) {
			v, ok := snapshot(owner)
			if !ok {
				return nil, false, nil
			}

			raw, err := json.Marshal(v)
			if err != nil {
				return nil, false, fmt.Errorf("marshal %s: %w", kind, err)
			}

			return raw, true, nil
		},
		restore: func(owner uuid.UUID, payload json.RawMessage) error {
			var v T

			err := json.Unmarshal(payload, &v)
			if err != nil {
				return fmt.Errorf("unmarshal %s: %w", kind, err)
			}

			return restore(owner, v)
		},
	}
}

// Flush saves every dirty record in one batch. On failure the keys are
// marked dirty again so the next flush retries them.
func (s *Saver) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	keys := s.tracker.take()
	if len(keys) == 0 {
		s.setDirty()
		return nil
	}

	start := s.now()
	stamp := start.UTC()

	var (
		upserts   []snapshots.Record
		deletes   []snapshots.Key
		failed    []snapshots.Key
		attempted []snapshots.Key
	)

	for _, k := range keys {
		b, ok := s.kinds[k.Kind]
		if !ok {
			slog.WarnContext(ctx, "dirty record of unregistered kind dropped", "player", k.PlayerID, "kind", k.Kind)
			continue
		}

		payload, present, err := b.snapshot(k.PlayerID)
		if err != nil {
			slog.ErrorContext(ctx, "snapshot failed", "player", k.PlayerID, "kind", k.Kind, "error", err)
			failed = append(failed, k)

			continue
		}

		attempted = append(attempted, k)

		if !present {
			deletes = append(deletes, k)
			continue
		}

		upserts = append(upserts, snapshots.Record{
			PlayerID:  k.PlayerID,
			Kind:      k.Kind,
			Version:   SchemaVersion,
			Payload:   payload,
			UpdatedAt: stamp,
		})
	}

	s.tracker.remark(failed)

	err := s.store.Save(ctx, upserts, deletes)
	took := time.Since(start)

	if err != nil {
		s.tracker.remark(attempted)
		s.record(took, false)

		slog.ErrorContext(ctx, "persist flush failed, will retry", "records", len(attempted), "error", err)

		return fmt.Errorf("flush records: %w", err)
	}

	s.record(took, true)

	slog.DebugContext(ctx, "persist flush done", "upserts", len(upserts), "deletes", len(deletes), "took", took)

	return nil
}

func (s *Saver) record(took time.Duration, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordSave(took, ok)
	}

	s.setDirty()
}

func (s *Saver) setDirty() {
	if s.metrics != nil {
		s.metrics.SetDirty(s.tracker.Len())
	}
}

// Run flushes every interval until ctx ends. Failed flushes are logged and
// retried on the next cycle.
func (s *Saver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = s.Flush(ctx)
		}
	}
}

// LoadAll restores every stored record into the registered components and
// returns how many were applied.
func (s *Saver) LoadAll(ctx context.Context) (int, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	n := 0

	for _, rec := range records {
		if rec.Version > SchemaVersion {
			return n, fmt.Errorf("load %s/%s: %w: version %d", rec.PlayerID, rec.Kind, ErrNewerSchema, rec.Version)
		}

		b, ok := s.kinds[rec.Kind]
		if !ok {
			slog.WarnContext(ctx, "skipping record of unknown kind", "player", rec.PlayerID, "kind", rec.Kind)
			continue
		}

		err = b.restore(rec.PlayerID, rec.Payload)
		if err != nil {
			return n, fmt.Errorf("restore %s/%s: %w", rec.PlayerID, rec.Kind, err)
		}

		n++
	}

	slog.InfoContext(ctx, "state loaded", "records", n)

	return n, nil
}
