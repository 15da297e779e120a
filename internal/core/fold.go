package core

import "context"

// AggregateUpserter is the atomic upsert-by-key primitive the fold
// relies on. Implementations must treat the call as one indivisible
// read-and-create-or-increment at the storage layer: it is the sole
// serialization point for concurrent folds of the same key.
//
// Semantics for a (key, quantity, fileID) call:
//   - no entry for key: create with the given quantity, count 1 and
//     sourceFiles [fileID]
//   - entry exists: quantity += given quantity, count += 1, and fileID
//     is appended to sourceFiles only if not already present
type AggregateUpserter interface {
	UpsertAggregate(ctx context.Context, key AggregateKey, quantity float64, fileID string) (AggregateEntry, error)
}

// Fold merges one canonical record into the running aggregate for its
// key. The fold itself holds no cross-call state and is safe to invoke
// in parallel across distinct keys; same-key races are resolved by the
// upserter. Quantity accumulation is plain float64 addition.
func Fold(ctx context.Context, up AggregateUpserter, rec Record, fileID string) (AggregateEntry, error) {
	return up.UpsertAggregate(ctx, KeyOf(rec), rec.Quantity, fileID)
}
