// Package integrity provides health checks for the exercise store.
//
// Unlike the 'sync' package which moves data between the two sides, this package
// validates the local side on its own.
//
// # Checks Provided
//
//   - Schema: Validates that the exercises and audit tables carry every column the models expect.
//   - Records: Counts exercises per sync status and finds synced rows without a remote id
//     and synced rows sharing a name.
//   - Archive: Checks that the run archive bucket exists when archiving is enabled and
//     counts the archived runs.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/records : Runs the records check (supports ?fix=true).
//   - GET /integrity/archive : Runs the archive check (supports ?fix=true).
package integrity
