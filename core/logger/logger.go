package logger

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a zap logger. The debug level selects zap's development defaults;
// everything else starts from the production preset.
func New(cfg *Config) (*zap.Logger, error) {
	base := zap.NewProductionConfig()
	if cfg.Level == "debug" {
		base = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		base.Level = zap.NewAtomicLevelAt(level)
	}

	base.Encoding = FormatJSON
	if cfg.Format == FormatConsole {
		base.Encoding = FormatConsole
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		base.DisableStacktrace = true
	}
	base.EncoderConfig.LevelKey = "level"
	base.EncoderConfig.TimeKey = "time"
	base.EncoderConfig.MessageKey = "message"

	return base.Build()
}

// Console is the terminal logger used before configuration is loaded.
func Console() *zap.Logger {
	l, err := New(&Config{Level: "debug", Format: FormatConsole})
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// WithRun returns a logger tagged with a sync run id and type.
func WithRun(l *zap.Logger, runID, runType string) *zap.Logger {
	return l.With(zap.String("run_id", runID), zap.String("run_type", runType))
}

// WithRayID returns a logger with the ray_id field set from the Fiber context.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	if rid, ok := c.Locals("ray_id").(string); ok && rid != "" {
		return l.With(zap.String("ray_id", rid))
	}
	return l
}
