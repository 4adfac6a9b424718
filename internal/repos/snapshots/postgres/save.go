package snapshots

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/playerbank/internal/infra/pgutils"
	"github.com/fastprodman/playerbank/internal/repos/snapshots"
)

const maxAttempts = 3

var saveTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func (r *snapshotsRepo) Save(ctx context.Context, upserts []snapshots.Record, deletes []snapshots.Key) error {
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}

	err := pgutils.InTxRetry(ctx, r.db, maxAttempts, saveTxOptions, func(ctx context.Context, tx *sql.Tx) error {
		return writeBatch(ctx, tx, upserts, deletes)
	})
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}

	return nil
}

func writeBatch(ctx context.Context, tx *sql.Tx, upserts []snapshots.Record, deletes []snapshots.Key) error {
	for _, rec := range upserts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_records (player_id, kind, schema_version, payload, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, $5)
			ON CONFLICT (player_id, kind) DO UPDATE
			SET schema_version = EXCLUDED.schema_version,
			    payload        = EXCLUDED.payload,
			    updated_at     = EXCLUDED.updated_at
		`, rec.PlayerID, rec.Kind, rec.Version, string(rec.Payload), rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", rec.PlayerID, rec.Kind, err)
		}
	}

	for _, k := range deletes {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM ledger_records
			WHERE player_id = $1 AND kind = $2
		`, k.PlayerID, k.Kind)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", k.PlayerID, k.Kind, err)
		}
	}

	return nil
}
