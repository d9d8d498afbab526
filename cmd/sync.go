package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"exercise-sync/core/bulk"
	"exercise-sync/core/reconcile"
	syncfeature "exercise-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	yesConfirm       bool
	dryRun           bool
	noSkipExisting   bool
	noDuplicateCheck bool
	runsLimit        int
)

// maxShown bounds the sample lines printed for operations and failures.
const maxShown = 5

// syncCmd is the parent command for all sync operations.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile exercises with the fitness platform",
	Long: `Plan, pull and push exercises between the local database and the remote
fitness platform. Every pull and push is recorded as an audit run.`,
}

var syncPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the reconciliation plan without applying it",
	RunE:  runSyncPlan,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Apply remote creates and updates to the local database",
	Long: `Plans a reconciliation pass and applies its create and update operations.
Conflicts are reported and never applied.

Examples:
  # Show what would change
  sync pull --dry-run

  # Apply without the interactive prompt
  sync pull --yes`,
	RunE: runSyncPull,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Create unlinked local exercises on the remote platform",
	Long: `Creates every local exercise that is not soft-deleted on the remote platform
and links it to the returned id. Records already linked are skipped unless
--no-skip-existing is given; records whose name matches another synced record are
reported as duplicates unless --no-duplicate-check is given.`,
	RunE: runSyncPush,
}

var syncRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs",
	RunE:  runSyncRuns,
}

func init() {
	syncPullCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm (non-interactive)")
	syncPullCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan and exit")

	syncPushCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm (non-interactive)")
	syncPushCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the candidates and exit")
	syncPushCmd.Flags().BoolVar(&noSkipExisting, "no-skip-existing", false, "Also push records that already have a remote id")
	syncPushCmd.Flags().BoolVar(&noDuplicateCheck, "no-duplicate-check", false, "Skip the name lookup against synced records")

	syncRunsCmd.Flags().IntVar(&runsLimit, "limit", syncfeature.DefaultRunsLimit, "Number of runs to list")

	syncCmd.AddCommand(syncPlanCmd, syncPullCmd, syncPushCmd, syncRunsCmd)
	RootCmd.AddCommand(syncCmd)
}

func runSyncPlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	plan, err := rt.service.Plan(ctx)
	if err != nil {
		return fmt.Errorf("failed to plan: %w", err)
	}
	printPlanReport(rt.logger, plan)
	return nil
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	l := rt.logger

	l.Info("Planning reconciliation...")
	plan, err := rt.service.Plan(ctx)
	if err != nil {
		return fmt.Errorf("failed to plan: %w", err)
	}
	printPlanReport(l, plan)

	if dryRun {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(plan.Actionable()) == 0 {
		l.Info("Nothing to apply.")
		return nil
	}
	if !confirmAction("apply these changes to the local database") {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	_, events, err := rt.service.Pull(ctx)
	if err != nil {
		return fmt.Errorf("failed to start pull: %w", err)
	}
	return followRun(l, events)
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	l := rt.logger

	overrides := syncfeature.PushOptions{}
	if noSkipExisting {
		v := false
		overrides.SkipExisting = &v
	}
	if noDuplicateCheck {
		v := false
		overrides.CheckForDuplicates = &v
	}
	opts := rt.service.ResolvePush(overrides)

	records, err := rt.service.PushCandidates(ctx)
	if err != nil {
		return err
	}
	linked := 0
	for _, rec := range records {
		if rec.HasExternalID() {
			linked++
		}
	}
	l.Info("Push candidates",
		zap.Int("candidates", len(records)),
		zap.Int("already_linked", linked),
		zap.Bool("skip_existing", opts.SkipExisting),
		zap.Bool("check_for_duplicates", opts.CheckForDuplicates),
	)

	if dryRun {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(records) == 0 {
		l.Info("Nothing to push.")
		return nil
	}
	if !confirmAction("create these exercises on the remote platform") {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	events, err := rt.service.Push(ctx, overrides)
	if err != nil {
		return fmt.Errorf("failed to start push: %w", err)
	}
	return followRun(l, events)
}

func runSyncRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	runs, err := rt.service.Runs(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		rt.logger.Info("No sync runs recorded yet.")
		return nil
	}
	for _, r := range runs {
		rt.logger.Info("Sync run",
			zap.String("id", r.ID),
			zap.String("type", r.RunType),
			zap.String("status", string(r.Status)),
			zap.Time("started_at", r.StartedAt),
			zap.Int("processed", r.Counts.Processed),
			zap.Int("created", r.Counts.Created),
			zap.Int("updated", r.Counts.Updated),
			zap.Int("failed", r.Counts.Failed),
			zap.String("error", r.ErrorMessage),
		)
	}
	return nil
}

// followRun logs progress until the terminal event. Item failures and run errors
// turn into a non-zero exit.
func followRun(l *zap.Logger, events <-chan bulk.ProgressEvent) error {
	var terminal *bulk.ProgressEvent
	for ev := range events {
		switch ev.Phase {
		case bulk.PhaseStart:
			l.Info("Run started", zap.Int("total", ev.Total))
		case bulk.PhaseProgress:
			l.Info("Progress", zap.Int("current", ev.Current), zap.Int("total", ev.Total), zap.Any("item", ev.Payload))
		case bulk.PhaseComplete, bulk.PhaseError:
			ev := ev
			terminal = &ev
		}
	}
	if terminal == nil {
		return bulk.ErrIncompleteStream
	}

	result := terminal.Result
	if result == nil {
		result = &bulk.Result{}
	}
	printResult(l, result)

	if terminal.Phase == bulk.PhaseError {
		return &bulk.RunError{Message: terminal.Message}
	}
	if !result.Succeeded() {
		return fmt.Errorf("%d items failed", result.Failed)
	}
	return nil
}

// printPlanReport prints a formatted reconciliation plan using logger.
func printPlanReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("total", s.Total),
		zap.Int("creates", s.Creates),
		zap.Int("updates", s.Updates),
		zap.Int("conflicts", s.Conflicts),
		zap.Int("skipped", s.Skipped),
	)

	ops := plan.Operations
	shown := min(len(ops), maxShown)
	for _, op := range ops[:shown] {
		l.Info("Sample operation",
			zap.String("kind", string(op.Kind)),
			zap.String("external_id", op.Remote.ExternalID),
			zap.String("name", op.Remote.Name),
			zap.Strings("conflict_fields", op.ConflictFields),
			zap.String("reason", op.Reason),
		)
	}
	if len(ops) > shown {
		l.Info("Additional operations not shown", zap.Int("count", len(ops)-shown))
	}
}

// printResult prints the outcome of a bulk run using logger.
func printResult(l *zap.Logger, r *bulk.Result) {
	l.Info("Run finished",
		zap.Int("successful", r.Successful),
		zap.Int("failed", r.Failed),
		zap.Int("skipped", r.Skipped),
		zap.Int("duplicates", r.Duplicates),
		zap.Bool("cancelled", r.Cancelled),
	)

	failed := r.Details.Failed
	shown := min(len(failed), maxShown)
	for _, d := range failed[:shown] {
		l.Warn("Failed item", zap.String("id", d.ID), zap.String("name", d.Name), zap.String("error", d.Error))
	}
	if len(failed) > shown {
		l.Warn("Additional failures not shown", zap.Int("count", len(failed)-shown))
	}
}

// confirmAction prompts the user for confirmation or uses --yes flag.
func confirmAction(what string) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  Type 'yes' to %s: ", what)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
