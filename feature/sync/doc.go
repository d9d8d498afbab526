// Package sync wires the reconciliation engine, the bulk coordinator and the audit
// log into the pull and push operations served over HTTP and the CLI.
//
// A pull plans against a cached remote snapshot and applies the create and update
// operations locally. A push creates the local exercises that are not linked yet
// on the remote side. Both return a progress channel that the caller must drain;
// the run is recorded in the audit log when the channel reaches its terminal event.
//
// # HTTP Endpoints
//
//   - POST /sync/plan : Returns the reconciliation plan without writing.
//   - POST /sync/pull : Streams pull progress as server-sent events (?dry_run=true returns the plan).
//   - POST /sync/push : Streams push progress; the JSON body may override skipExisting
//     and checkForDuplicates (?dry_run=true returns the candidates).
//   - GET /sync/runs : Lists recent runs (?limit=20).
//   - GET /sync/runs/:id : Returns one run with its items.
package sync
