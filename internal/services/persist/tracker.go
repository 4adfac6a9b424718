package persist

import (
	"sync"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
	"github.com/google/uuid"
)

// Tracker is the set of records changed since the last flush. Components
// call MarkDirty after every mutation.
type Tracker struct {
	mu    sync.Mutex
	dirty map[snapshots.Key]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{dirty: make(map[snapshots.Key]struct{})}
}

func (t *Tracker) MarkDirty(owner uuid.UUID, kind string) {
	t.mu.Lock()
	t.dirty[snapshots.Key{PlayerID: owner, Kind: kind}] = struct{}{}
	t.mu.Unlock()
}

func (t *Tracker) remark(keys []snapshots.Key) {
	t.mu.Lock()
	for _, k := range keys {
		t.dirty[k] = struct{}{}
	}
	t.mu.Unlock()
}

// take empties the set and returns what it held.
func (t *Tracker) take() []snapshots.Key {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]snapshots.Key, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}

	t.dirty = make(map[snapshots.Key]struct{})

	return keys
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.dirty)
}
