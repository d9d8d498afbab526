package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"exercise-sync/core/loader"
	"exercise-sync/core/logger"
	"exercise-sync/core/middleware/auth"
	"exercise-sync/core/middleware/rayid"
	"exercise-sync/feature/integrity"
	"exercise-sync/feature/integrity/checks"
	syncfeature "exercise-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the exercise sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// 1. Configuration, logger, database, gateway and audit log
		rt, err := bootstrap(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer rt.Close()
		logg := rt.logger
		zap.ReplaceGlobals(logg)

		// 2. Runs left open by a previous process are failed
		if n, err := rt.audit.RecoverAbandoned(ctx); err != nil {
			logg.Warn("Failed to recover abandoned runs", zap.Error(err))
		} else if n > 0 {
			logg.Warn("Marked abandoned sync runs as failed", zap.Int64("count", n))
		}

		// 3. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 4. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(syncfeature.NewFeature(rt.service))
		mgr.Register(integrity.NewFeature(rt.db, rt.storage, checks.ArchiveTarget{
			Bucket: rt.cfg.Storage.Bucket,
			Region: rt.cfg.Storage.Region,
			Prefix: rt.cfg.Audit.Prefix,
		}, logg.Named("integrity")))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Request logging with ray id
		app.Use(requestLogger(logg))

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout()); err != nil {
			logg.Warn("Server shutdown did not complete", zap.Error(err))
		}
	},
}

// requestLogger logs every request with its ray id.
func requestLogger(logg *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	}
}

func init() {
	RootCmd.AddCommand(startCmd)
}
