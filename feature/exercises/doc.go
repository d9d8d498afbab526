// Package exercises is the local exercise store.
//
// The Repository persists models.Exercise rows through gorm and exposes them as
// record.LocalRecord values. It implements the local side of a sync: full snapshots
// for reconciliation, upsert keyed by external id, update keyed by primary key,
// synced/error marking and the case-insensitive duplicate lookup used before
// creating exercises remotely.
//
// DefaultMappings is the field table between the exercises table and the remote
// exercise shape.
package exercises
