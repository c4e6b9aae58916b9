package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// PgStore keeps the snapshot in a single-row PostgreSQL table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL snapshot store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (r *PgStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM account_snapshots WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("getting snapshot: %w", err)
	}

	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parsing stored snapshot: %w", err)
	}
	return snap, nil
}

func (r *PgStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := snap.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO account_snapshots (id, data, saved_at)
		 VALUES (1, $1::jsonb, NOW())
		 ON CONFLICT (id)
		 DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		string(data))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

var _ Store = (*PgStore)(nil)
