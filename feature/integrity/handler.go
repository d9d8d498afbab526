package integrity

import (
	"exercise-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/records", h.HandleRecordsCheck)
	group.Get("/archive", h.HandleArchiveCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	if schemaReport, err := h.service.CheckSchema(); err != nil {
		report["schema"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schemaReport
	}

	if recordsReport, err := h.service.CheckRecords(ctx); err != nil {
		report["records"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["records"] = recordsReport
	}

	if archiveReport, err := h.service.CheckArchive(ctx); err != nil {
		report["archive"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["archive"] = archiveReport
	}

	return c.JSON(report)
}

// HandleSchemaCheck validates the table schemas.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}

// HandleRecordsCheck inspects exercise rows and optionally resets unlinked ones.
func (h *Handler) HandleRecordsCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckRecords(c.UserContext())
	if err != nil {
		l.Error("Records check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if fix && len(report.Unlinked) > 0 {
		l.Warn("Resetting synced exercises without a remote id", zap.Uints("ids", report.Unlinked))
		fixed, err := h.service.FixUnlinked(c.UserContext(), report.Unlinked)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to reset unlinked exercises",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status": "fixed",
			"fixed":  fixed,
			"report": report,
		})
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"report": report,
	})
}

// HandleArchiveCheck checks and optionally creates the run archive bucket.
func (h *Handler) HandleArchiveCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckArchive(c.UserContext())
	if err != nil {
		l.Error("Archive check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if report.Enabled && !report.Exists && fix {
		if err := h.service.FixArchive(c.UserContext()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to create archive bucket",
				"details": err.Error(),
			})
		}
		report.Exists = true
		return c.JSON(fiber.Map{"status": "fixed", "report": report})
	}

	return c.JSON(fiber.Map{"status": "checked", "report": report})
}
