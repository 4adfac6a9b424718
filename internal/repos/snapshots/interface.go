package snapshots

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Key addresses one persisted record: one kind of state of one player.
type Key struct {
	PlayerID uuid.UUID
	Kind     string
}

type Record struct {
	PlayerID  uuid.UUID
	Kind      string
	Version   int
	Payload   json.RawMessage
	UpdatedAt time.Time
}

func (r Record) Key() Key {
	return Key{PlayerID: r.PlayerID, Kind: r.Kind}
}

type Store interface {
	// Save upserts and deletes in one atomic batch.
	Save(ctx context.Context, upserts []Record, deletes []Key) error
	LoadAll(ctx context.Context) ([]Record, error)
}
