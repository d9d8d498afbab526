// Package gateway is the single point of egress to the remote fitness platform.
//
// Every outbound call goes through Gateway.Request, which enforces the provider's
// per-credential limits:
//   - Serialization: one worker goroutine owns the connection state. Callers queue on an
//     unbuffered channel, so requests are served in arrival order and only one is ever
//     in flight.
//   - Spacing: before each attempt the worker waits until 1/RequestsPerSecond has
//     elapsed since the previous attempt completed (the watermark).
//   - Retries: HTTP 429 backs off exponentially (base * 2^(attempt-1)); 5xx and transport
//     failures back off linearly (base * attempt). MaxRetries is the total attempt budget.
//   - Fatal statuses: 401/403 return an AuthError immediately.
//   - Missing resources: 404 returns a Response with NotFound set and a nil error.
//
// There is no per-call deadline. A call is bounded only by the retry budget and the
// rate waits, and it can be abandoned through its context.
//
// # Usage
//
//	gw, err := gateway.New(cfg.Remote, gateway.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer gw.Close()
//
//	resp, err := gw.Request(ctx, "/exercises/list", map[string]any{"page": 1})
package gateway
