// Package bulk applies reconciliation operations and bulk-adds local records to the
// remote side, one item at a time, reporting progress on a channel.
//
// # Modes
//
//   - Apply (pull): writes create and update operations to local storage. Skips and
//     conflicts are counted but never written.
//   - Push (bulk-add): creates local records remotely, after optional skip-existing and
//     duplicate-name checks, pausing after every batch.
//
// # Events
//
// Every run emits exactly one start event, then progress and exercise_saved events in
// input order, then exactly one terminal event: complete, or error when the run could
// not be set up or hit a fatal remote error. Item failures are recorded in the Result
// and never end the run. The caller must drain the channel until it is closed.
//
// # Streaming
//
// WriteEvent and ReadEvents encode events as server-sent events ("data: <json>").
// A stream is complete only once its terminal event has been read.
package bulk
