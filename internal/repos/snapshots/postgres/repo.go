package snapshots

import (
	"database/sql"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
)

var _ snapshots.Store = (*snapshotsRepo)(nil)

type snapshotsRepo struct{ db *sql.DB }

func New(db *sql.DB) *snapshotsRepo {
	return &snapshotsRepo{db: db}
}
