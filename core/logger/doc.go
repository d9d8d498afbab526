// Package logger provides a structured logging facility based on Zap.
//
// It builds a configured logger for development (console) or production (json) output
// and integrates with the Fiber web framework.
//
// # Context Awareness
//
// WithRayID extracts the RayID set by the rayid middleware from a Fiber context and
// attaches it to the log entry, so all logs of one request can be correlated.
// WithRun does the same for a sync run, which may outlive the request that started it.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Server started")
//
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
