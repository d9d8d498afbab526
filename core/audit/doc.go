// Package audit records every sync run and, best effort, every item of a run.
//
// A run is opened with StartRun and closed exactly once with CompleteRun. Runs are
// stored with the id of the process that started them; a reader that finds a run still
// "started" under another process id reports it as failed, since that process exited
// before completing it. RecoverAbandoned persists that verdict at startup.
//
// Item logging never fails the operation it describes: store errors are logged and
// dropped.
//
// Completed runs can be archived as JSON to object storage (runs/<id>.json) through
// the core/storage client.
package audit
