// Package store provides the persistence collaborators for the mapping
// engine: a PostgreSQL implementation backed by pgx and an in-memory
// implementation used in tests and database-less development. Both
// satisfy core.Store plus the read and delete operations the HTTP layer
// needs.
package store

import (
	"context"
	"errors"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
)

// ErrNotFound is returned when a file or aggregate does not exist.
var ErrNotFound = errors.New("not found")

// Store is the full storage surface. core.Store is a subset; the extra
// methods serve listing, export, and cascade deletion.
type Store interface {
	core.Store

	GetFile(ctx context.Context, fileID string) (core.FileRecord, error)
	ListFiles(ctx context.Context) ([]core.FileRecord, error)
	GetRows(ctx context.Context, fileID string) ([]core.Record, error)
	ListAggregates(ctx context.Context) ([]core.AggregateEntry, error)

	// DeleteFile removes a file, its raw rows, and its contributions to
	// the aggregate view: per key, the file's summed quantity and row
	// count are subtracted, the file ID is removed from sourceFiles, and
	// entries whose count reaches zero are deleted.
	DeleteFile(ctx context.Context, fileID string) error
}

// contribution is one file's share of an aggregate key, used when
// unwinding a deleted file.
type contribution struct {
	quantity float64
	count    int
}

// contributionsOf groups a file's rows by aggregation key.
func contributionsOf(rows []core.Record) map[core.AggregateKey]contribution {
	byKey := make(map[core.AggregateKey]contribution)
	for _, rec := range rows {
		key := core.KeyOf(rec)
		c := byKey[key]
		c.quantity += rec.Quantity
		c.count++
		byKey[key] = c
	}
	return byKey
}
