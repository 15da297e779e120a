package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. The aggregated_items unique index is
// the serialization point for concurrent folds; item_id uses the empty
// string for "no index column" so the key treats all such rows as one
// bucket (a NULL would make every row distinct under the unique index).
const schema = `
CREATE TABLE IF NOT EXISTS files (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	structure   JSONB NOT NULL DEFAULT '[]',
	row_count   INTEGER NOT NULL DEFAULT 0,
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS file_rows (
	id        BIGSERIAL PRIMARY KEY,
	file_id   UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	item_id   TEXT NOT NULL DEFAULT '',
	name      TEXT NOT NULL,
	quantity  DOUBLE PRECISION NOT NULL,
	unit      TEXT NOT NULL,
	ordinal   DOUBLE PRECISION,
	row_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_rows_file ON file_rows(file_id, row_index);

CREATE TABLE IF NOT EXISTS aggregated_items (
	id           UUID PRIMARY KEY,
	item_id      TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL,
	unit         TEXT NOT NULL,
	quantity     DOUBLE PRECISION NOT NULL,
	count        INTEGER NOT NULL,
	source_files TEXT[] NOT NULL DEFAULT '{}',
	UNIQUE (item_id, name, unit)
);
`

// upsertAggregateSQL performs the atomic read-and-create-or-increment
// in a single statement. Postgres resolves same-key races on the unique
// constraint, so no advisory locking is needed.
const upsertAggregateSQL = `
INSERT INTO aggregated_items (id, item_id, name, unit, quantity, count, source_files)
VALUES ($1, $2, $3, $4, $5, 1, ARRAY[$6])
ON CONFLICT (item_id, name, unit) DO UPDATE SET
	quantity = aggregated_items.quantity + EXCLUDED.quantity,
	count    = aggregated_items.count + 1,
	source_files = CASE
		WHEN $6 = ANY (aggregated_items.source_files) THEN aggregated_items.source_files
		ELSE array_append(aggregated_items.source_files, $6)
	END
RETURNING id, item_id, name, unit, quantity, count, source_files
`

// Postgres is the pgx-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store over the given pool and ensures
// the schema exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) CreateFile(ctx context.Context, file core.FileRecord) error {
	structure, err := json.Marshal(file.Structure)
	if err != nil {
		return fmt.Errorf("marshal structure: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO files (id, name, structure, row_count, size_bytes) VALUES ($1, $2, $3, $4, $5)`,
		file.ID, file.Name, structure, file.RowCount, file.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (p *Postgres) InsertRows(ctx context.Context, fileID string, rows []core.Record) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range rows {
		batch.Queue(
			`INSERT INTO file_rows (file_id, item_id, name, quantity, unit, ordinal, row_index)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			fileID, rec.ItemID, rec.Name, rec.Quantity, rec.Unit, rec.Ordinal, rec.OriginalRowIndex,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) UpsertAggregate(ctx context.Context, key core.AggregateKey, quantity float64, fileID string) (core.AggregateEntry, error) {
	var entry core.AggregateEntry
	err := p.pool.QueryRow(ctx, upsertAggregateSQL,
		uuid.New().String(), key.ItemID, key.Name, key.Unit, quantity, fileID,
	).Scan(&entry.ID, &entry.ItemID, &entry.Name, &entry.Unit, &entry.Quantity, &entry.Count, &entry.SourceFiles)
	if err != nil {
		return core.AggregateEntry{}, fmt.Errorf("upsert aggregate: %w", err)
	}
	return entry, nil
}

func (p *Postgres) GetFile(ctx context.Context, fileID string) (core.FileRecord, error) {
	var (
		file      core.FileRecord
		structure []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, structure, row_count, size_bytes FROM files WHERE id = $1`,
		fileID,
	).Scan(&file.ID, &file.Name, &structure, &file.RowCount, &file.SizeBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.FileRecord{}, ErrNotFound
	}
	if err != nil {
		return core.FileRecord{}, fmt.Errorf("get file: %w", err)
	}
	if err := json.Unmarshal(structure, &file.Structure); err != nil {
		return core.FileRecord{}, fmt.Errorf("decode structure: %w", err)
	}
	return file, nil
}

func (p *Postgres) ListFiles(ctx context.Context) ([]core.FileRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, structure, row_count, size_bytes FROM files ORDER BY uploaded_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []core.FileRecord
	for rows.Next() {
		var (
			file      core.FileRecord
			structure []byte
		)
		if err := rows.Scan(&file.ID, &file.Name, &structure, &file.RowCount, &file.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if err := json.Unmarshal(structure, &file.Structure); err != nil {
			return nil, fmt.Errorf("decode structure: %w", err)
		}
		out = append(out, file)
	}
	return out, rows.Err()
}

func (p *Postgres) GetRows(ctx context.Context, fileID string) ([]core.Record, error) {
	if _, err := p.GetFile(ctx, fileID); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT item_id, name, quantity, unit, ordinal, row_index
		 FROM file_rows WHERE file_id = $1 ORDER BY row_index`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("get rows: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var rec core.Record
		if err := rows.Scan(&rec.ItemID, &rec.Name, &rec.Quantity, &rec.Unit, &rec.Ordinal, &rec.OriginalRowIndex); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) ListAggregates(ctx context.Context) ([]core.AggregateEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, item_id, name, unit, quantity, count, source_files
		 FROM aggregated_items ORDER BY name, unit, item_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	var out []core.AggregateEntry
	for rows.Next() {
		var entry core.AggregateEntry
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.Name, &entry.Unit,
			&entry.Quantity, &entry.Count, &entry.SourceFiles); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteFile(ctx context.Context, fileID string) error {
	recs, err := p.GetRows(ctx, fileID)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Unwind this file's contributions before the cascade removes its
	// rows.
	for key, c := range contributionsOf(recs) {
		_, err := tx.Exec(ctx,
			`UPDATE aggregated_items SET
				quantity = quantity - $4,
				count = count - $5,
				source_files = array_remove(source_files, $6)
			 WHERE item_id = $1 AND name = $2 AND unit = $3`,
			key.ItemID, key.Name, key.Unit, c.quantity, c.count, fileID,
		)
		if err != nil {
			return fmt.Errorf("unwind aggregate: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM aggregated_items WHERE count <= 0`); err != nil {
		return fmt.Errorf("prune aggregates: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
