package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	p := uuid.New()

	err := s.Save(ctx, []snapshots.Record{
		{PlayerID: p, Kind: "account", Version: 1, Payload: json.RawMessage(`{"balance":"1"}`)},
		{PlayerID: p, Kind: "wallet", Version: 1, Payload: json.RawMessage(`{"cash":"2"}`)},
	}, nil)
	require.NoError(t, err)

	err = s.Save(ctx, nil, []snapshots.Key{{PlayerID: p, Kind: "wallet"}})
	require.NoError(t, err)

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "account", got[0].Kind)
	assert.JSONEq(t, `{"balance":"1"}`, string(got[0].Payload))
	assert.Equal(t, 2, s.Saves())
}

func TestStore_FailNextSaves(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	rec := snapshots.Record{PlayerID: uuid.New(), Kind: "account", Version: 1, Payload: json.RawMessage(`{}`)}

	s.FailNextSaves(1)

	err := s.Save(ctx, []snapshots.Record{rec}, nil)
	require.ErrorIs(t, err, ErrInjected)

	_, ok := s.Get(rec.Key())
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, []snapshots.Record{rec}, nil))

	_, ok = s.Get(rec.Key())
	assert.True(t, ok)
}
