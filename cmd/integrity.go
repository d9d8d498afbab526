package cmd

import (
	"context"
	"fmt"

	"exercise-sync/core/config"
	"exercise-sync/core/database"
	"exercise-sync/core/logger"
	"exercise-sync/core/storage"
	"exercise-sync/feature/integrity"
	"exercise-sync/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	checkSchema  = "schema"
	checkRecords = "records"
	checkArchive = "archive"
)

var integrityFix bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity [schema|records|archive]",
	Short: "Check the exercise tables and the run archive",
	Long: `Runs integrity checks against the local database and the run archive bucket.
Without an argument every check runs. With --fix, synced exercises without a remote
id are reset to pending and a missing archive bucket is created.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{checkSchema, checkRecords, checkArchive},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = logg.Sync() }()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}
		defer func() { _ = database.Close(db) }()

		var client storage.Client
		if cfg.Audit.Archive {
			if client, err = storage.NewClient(cfg.Storage); err != nil {
				return fmt.Errorf("failed to create storage client: %w", err)
			}
		}

		svc := integrity.NewService(db, client, checks.ArchiveTarget{
			Bucket: cfg.Storage.Bucket,
			Region: cfg.Storage.Region,
			Prefix: cfg.Audit.Prefix,
		}, logg.Named("integrity"))

		only := ""
		if len(args) == 1 {
			only = args[0]
		}
		return runIntegrity(cmd.Context(), svc, logg, only, integrityFix)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.Flags().BoolVar(&integrityFix, "fix", false, "Reset unlinked exercises and create the archive bucket")
}

// runIntegrity runs the selected check, or all of them when only is empty. It
// fails when a check cannot run or leaves issues behind.
func runIntegrity(ctx context.Context, svc *integrity.Service, logg *zap.Logger, only string, fix bool) error {
	selected := func(name string) bool { return only == "" || only == name }
	issues := 0

	if selected(checkSchema) {
		logg.Info("Checking database schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Schema matches the models.")
		} else {
			issues++
			for table, tbl := range report.Tables {
				if tbl.Status == "ok" {
					continue
				}
				logg.Warn("Schema mismatch",
					zap.String("table", table),
					zap.Strings("missing_columns", tbl.MissingColumns),
					zap.Strings("type_mismatches", tbl.TypeMismatches),
				)
			}
			for _, e := range report.Errors {
				logg.Error("Inspection error", zap.String("error", e))
			}
		}
	}

	if selected(checkRecords) {
		logg.Info("Checking exercise records...")
		n, err := checkExerciseRecords(ctx, svc, logg, fix)
		if err != nil {
			return err
		}
		issues += n
	}

	if selected(checkArchive) {
		logg.Info("Checking run archive...")
		report, err := svc.CheckArchive(ctx)
		if err != nil {
			return fmt.Errorf("archive check failed: %w", err)
		}
		switch {
		case !report.Enabled:
			logg.Info("Run archiving is disabled.")
		case report.Exists:
			logg.Info("Archive bucket is present.", zap.String("bucket", report.Bucket), zap.Int("runs", report.Runs))
		case fix:
			if err := svc.FixArchive(ctx); err != nil {
				return fmt.Errorf("failed to create archive bucket: %w", err)
			}
		default:
			issues++
			logg.Warn("Archive bucket is missing", zap.String("bucket", report.Bucket))
			logg.Info("Run with --fix to create it.")
		}
	}

	if issues > 0 {
		return fmt.Errorf("integrity issues found in %d checks", issues)
	}
	return nil
}

func checkExerciseRecords(ctx context.Context, svc *integrity.Service, logg *zap.Logger, fix bool) (int, error) {
	report, err := svc.CheckRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("records check failed: %w", err)
	}
	logg.Info("Exercise sync states", zap.Any("by_status", report.ByStatus))
	if report.Healthy() {
		logg.Info("Exercise records are consistent.")
		return 0, nil
	}

	remaining := len(report.Errored) > 0 || len(report.DuplicateNames) > 0
	for _, e := range report.Errored {
		logg.Warn("Exercise failed to sync", zap.Uint("id", e.ID), zap.String("name", e.Name), zap.String("error", e.SyncError))
	}
	if len(report.DuplicateNames) > 0 {
		logg.Warn("Synced exercises share a name", zap.Strings("names", report.DuplicateNames))
	}

	if len(report.Unlinked) > 0 {
		if fix {
			n, err := svc.FixUnlinked(ctx, report.Unlinked)
			if err != nil {
				return 0, fmt.Errorf("failed to reset unlinked exercises: %w", err)
			}
			logg.Info("Reset unlinked exercises to pending.", zap.Int64("count", n))
		} else {
			remaining = true
			logg.Warn("Synced exercises without a remote id", zap.Uints("ids", report.Unlinked))
			logg.Info("Run with --fix to reset them to pending.")
		}
	}

	if remaining {
		return 1, nil
	}
	return 0, nil
}
