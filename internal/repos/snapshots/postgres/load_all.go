package snapshots

import (
	"context"
	"fmt"

	"github.com/fastprodman/playerbank/internal/repos/snapshots"
)

func (r *snapshotsRepo) LoadAll(ctx context.Context) ([]snapshots.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, kind, schema_version, payload, updated_at
		FROM ledger_records
		ORDER BY player_id, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var out []snapshots.Record

	for rows.Next() {
		var (
			rec     snapshots.Record
			payload []byte
		)

		err = rows.Scan(&rec.PlayerID, &rec.Kind, &rec.Version, &payload, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.Payload = payload
		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return out, nil
}
