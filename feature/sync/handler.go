package sync

import (
	"bufio"
	"context"
	"errors"

	"exercise-sync/core/audit"
	"exercise-sync/core/bulk"
	"exercise-sync/core/gateway"
	"exercise-sync/core/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultRunsLimit is the number of runs listed when no limit is given.
const DefaultRunsLimit = 20

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/plan", h.HandlePlan)
	group.Post("/pull", h.HandlePull)
	group.Post("/push", h.HandlePush)
	group.Get("/runs", h.HandleListRuns)
	group.Get("/runs/:id", h.HandleGetRun)
}

// HandlePlan returns the reconciliation plan without applying it.
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.Logger(), c)

	plan, err := h.service.Plan(c.UserContext())
	if err != nil {
		l.Error("Sync plan failed", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(plan)
}

// HandlePull applies the plan and streams progress as server-sent events.
// With ?dry_run=true it returns the plan instead.
func (h *Handler) HandlePull(c *fiber.Ctx) error {
	if c.QueryBool("dry_run") {
		return h.HandlePlan(c)
	}

	l := logger.WithRayID(h.service.Logger(), c)
	ctx, cancel := context.WithCancel(context.Background())

	_, events, err := h.service.Pull(ctx)
	if err != nil {
		cancel()
		l.Error("Sync pull failed to start", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return stream(c, l, events, cancel)
}

// HandlePush creates unlinked local exercises remotely and streams progress as
// server-sent events. The optional JSON body overrides skipExisting and
// checkForDuplicates.
func (h *Handler) HandlePush(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.Logger(), c)

	var opts PushOptions
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &opts); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	if c.QueryBool("dry_run") {
		records, err := h.service.PushCandidates(c.UserContext())
		if err != nil {
			l.Error("Sync push dry run failed", zap.Error(err))
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"options": h.service.ResolvePush(opts), "candidates": records})
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := h.service.Push(ctx, opts)
	if err != nil {
		cancel()
		l.Error("Sync push failed to start", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return stream(c, l, events, cancel)
}

// HandleListRuns lists recent sync runs. ?limit bounds the result.
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.Logger(), c)

	runs, err := h.service.Runs(c.UserContext(), c.QueryInt("limit", DefaultRunsLimit))
	if err != nil {
		l.Error("Failed to list sync runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(runs)
}

// HandleGetRun returns one run with its items.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.Logger(), c)

	detail, err := h.service.Run(c.UserContext(), c.Params("id"))
	if errors.Is(err, audit.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Failed to load sync run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(detail)
}

// stream writes events as they arrive. A client that goes away cancels the run;
// the channel is still drained so the run reaches its terminal event.
func stream(c *fiber.Ctx, l *zap.Logger, events <-chan bulk.ProgressEvent, cancel context.CancelFunc) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		gone := false
		for ev := range events {
			if gone {
				continue
			}
			if err := bulk.WriteEvent(w, ev); err != nil {
				l.Warn("Progress stream client went away", zap.Error(err))
				gone = true
				cancel()
			}
		}
	}))

	return nil
}

// statusFor maps remote API failures to 502 and everything else to 500.
func statusFor(err error) int {
	var (
		ae *gateway.AuthError
		re *gateway.RemoteError
		ne *gateway.NetworkError
		rl *gateway.RateLimitedError
	)
	if errors.As(err, &ae) || errors.As(err, &re) || errors.As(err, &ne) || errors.As(err, &rl) {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
