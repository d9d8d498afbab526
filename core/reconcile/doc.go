// Package reconcile produces the operation list for one reconciliation pass between
// the remote exercise catalogue and the local datastore.
//
// # Architecture
//
//  1. Sources: RemoteSource and LocalSource load full snapshots of each side. The
//     engine does not own them; the remote client and the gorm repository implement them.
//
//  2. Engine: indexes local records by external id and by lower-cased name, maps every
//     remote record to local fields and classifies it as create, update, skip or conflict.
//     Classification is a pure read step. It never writes.
//
//  3. SnapshotCache: TTL cache of the remote snapshot with stampede protection, so that
//     a plan followed by an apply does not page through the remote API twice.
//
// # Classification
//
//   - externalId match, significant fields differ: conflict ("field: old → new")
//   - externalId match, everything equal, local synced: skip
//   - externalId match otherwise: update
//   - lower-cased name match only: conflict ("name collision, potential duplicate")
//   - no match: create
//
// A name collision is never merged automatically.
//
// # Usage
//
//	engine := reconcile.NewEngine(m, reconcile.Options{})
//	cache := reconcile.NewSnapshotCache(remoteClient, time.Minute)
//	plan, err := engine.Plan(ctx, cache, repo)
package reconcile
