// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting every sync endpoint.
//   - rayid: a unique request id (RayID) stored in the context and echoed in the
//     response headers for tracing.
//
// rayid must be registered first so every later log line carries the id.
package middleware
