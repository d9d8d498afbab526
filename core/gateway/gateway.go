package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Response is a successful (or not-found) reply from the remote API.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// NotFound is set for 404 replies. Data is empty in that case.
	NotFound bool
	// Data is the unwrapped "data" member of the envelope, or the whole body when
	// the endpoint does not use an envelope.
	Data json.RawMessage
}

// Decode unmarshals Data into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithClock replaces the system clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// Gateway serializes every call to the remote API through a single worker.
type Gateway struct {
	baseURL    string
	authHeader string
	interval   time.Duration
	attempts   int
	baseDelay  time.Duration

	httpClient *http.Client
	clock      clock.Clock
	logger     *zap.Logger

	calls     chan *call
	done      chan struct{}
	closeOnce sync.Once

	// lastRequest is the watermark. Only the worker goroutine touches it.
	lastRequest time.Time
}

type call struct {
	ctx      context.Context
	endpoint string
	payload  any
	result   chan callResult
}

type callResult struct {
	resp *Response
	err  error
}

// New validates cfg and starts the gateway worker.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.GroupID + ":" + cfg.Token))

	g := &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: "Basic " + credentials,
		interval:   cfg.Interval(),
		attempts:   cfg.Attempts(),
		baseDelay:  cfg.BaseDelay(),
		// No client timeout: a call is bounded by the retry budget and its context only.
		httpClient: &http.Client{},
		clock:      clock.Real(),
		logger:     zap.NewNop(),
		calls:      make(chan *call),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	go g.run()
	return g, nil
}

// Close stops the worker. In-flight calls finish; queued and later calls fail with ErrClosed.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() { close(g.done) })
}

// Request POSTs payload as JSON to endpoint and waits for the outcome.
// It blocks while earlier requests are served, while the rate interval elapses
// and while retries back off.
func (g *Gateway) Request(ctx context.Context, endpoint string, payload any) (*Response, error) {
	c := &call{
		ctx:      ctx,
		endpoint: endpoint,
		payload:  payload,
		result:   make(chan callResult, 1),
	}

	select {
	case g.calls <- c:
	case <-g.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r := <-c.result
	return r.resp, r.err
}

func (g *Gateway) run() {
	for {
		select {
		case <-g.done:
			return
		case c := <-g.calls:
			resp, err := g.do(c.ctx, c.endpoint, c.payload)
			c.result <- callResult{resp: resp, err: err}
		}
	}
}

// do runs the bounded retry loop for one request.
func (g *Gateway) do(ctx context.Context, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &RemoteError{Endpoint: endpoint, Message: "encode payload: " + err.Error()}
	}

	var (
		resp     *Response
		attempts int
	)
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err = g.waitTurn(ctx); err != nil {
			break
		}

		attempts = attempt
		resp, err = g.send(ctx, endpoint, body)
		g.lastRequest = g.clock.Now()

		if err == nil || attempt == g.attempts {
			break
		}

		delay, retry := Backoff(err, attempt, g.baseDelay)
		if !retry {
			break
		}

		g.logger.Warn("Retrying remote request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err = g.clock.Sleep(ctx, delay); err != nil {
			break
		}
	}

	if err != nil {
		var rl *RateLimitedError
		if errors.As(err, &rl) {
			rl.Attempts = attempts
		}
		return nil, err
	}
	return resp, nil
}

// Backoff returns the delay before the next attempt after attempt (1-based)
// failed with err, and whether a retry is allowed at all.
func Backoff(err error, attempt int, base time.Duration) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return base * time.Duration(1<<(attempt-1)), true
	}
	if IsRetryable(err) {
		return base * time.Duration(attempt), true
	}
	return 0, false
}

// waitTurn blocks until the interval since the previous request has elapsed.
func (g *Gateway) waitTurn(ctx context.Context) error {
	if g.lastRequest.IsZero() {
		return ctx.Err()
	}
	wait := g.interval - g.clock.Now().Sub(g.lastRequest)
	if wait <= 0 {
		return ctx.Err()
	}
	return g.clock.Sleep(ctx, wait)
}

// send performs a single HTTP attempt and maps the outcome onto the error taxonomy.
func (g *Gateway) send(ctx context.Context, endpoint string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", g.authHeader)

	g.logger.Debug("Remote request", zap.String("endpoint", endpoint), zap.Int("bytes", len(body)))

	res, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		_, msg := parseProviderError(data)
		return nil, &AuthError{Status: res.StatusCode, Message: msg}
	case res.StatusCode == http.StatusNotFound:
		return &Response{Status: res.StatusCode, NotFound: true}, nil
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{Endpoint: endpoint}
	case res.StatusCode < 200 || res.StatusCode >= 300:
		code, msg := parseProviderError(data)
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return nil, &RemoteError{Endpoint: endpoint, Status: res.StatusCode, Code: code, Message: msg}
	}

	return unwrapEnvelope(endpoint, res.StatusCode, data)
}

// unwrapEnvelope handles the provider's {"code", "message", "data"} envelope. Some
// endpoints skip the envelope and return a bare array or object; those are passed through.
func unwrapEnvelope(endpoint string, status int, data []byte) (*Response, error) {
	resp := &Response{Status: status}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return resp, nil
	}
	if trimmed[0] != '{' {
		resp.Data = json.RawMessage(trimmed)
		return resp, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &RemoteError{Endpoint: endpoint, Status: status, Message: "malformed response body: " + err.Error()}
	}

	if code, msg := parseProviderError(trimmed); code != 0 {
		return nil, &RemoteError{Endpoint: endpoint, Status: status, Code: code, Message: msg}
	}

	if raw, ok := env["data"]; ok {
		resp.Data = raw
	} else {
		resp.Data = json.RawMessage(trimmed)
	}
	return resp, nil
}

// parseProviderError extracts the provider's own error code and message, tolerating
// the different field names used across endpoints.
func parseProviderError(data []byte) (int, string) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, strings.TrimSpace(string(data))
	}

	code := utils.ToInt(body["code"])
	for _, key := range []string{"message", "msg", "error", "error_description"} {
		if v, ok := body[key]; ok && !utils.IsBlank(v) {
			if nested, ok := v.(map[string]any); ok {
				if code == 0 {
					code = utils.ToInt(nested["code"])
				}
				return code, utils.ToString(nested["message"])
			}
			return code, utils.ToString(v)
		}
	}
	return code, ""
}
