package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/dealbook-dev/dealbook/internal/bookmarks"
)

// NewSyncCmd creates the sync command
func NewSyncCmd(opts ...Option) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload bookmarks saved on this device to your account",
		Long: `Upload bookmarks saved on this device to your account.

Login already does this. Use sync to retry after a failed upload, or pass
--schedule to keep retrying until every bookmark is uploaded, for example
--schedule "@every 5m".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), newOptions(opts), schedule)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule for retries until the upload succeeds")

	return cmd
}

func runSync(ctx context.Context, o *options, schedule string) error {
	var sched cron.Schedule
	if schedule != "" {
		var err error
		sched, err = cron.ParseStandard(schedule)
		if err != nil {
			return fmt.Errorf("invalid schedule '%s': %w", schedule, err)
		}
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireSession(); err != nil {
		return err
	}

	result, err := a.syncer.Sync(ctx)
	printSyncOutcome(a, result, err)
	if err == nil {
		return nil
	}
	if sched == nil {
		return err
	}

	return syncOnSchedule(ctx, a, sched)
}

// syncOnSchedule retries the upload on sched until one attempt succeeds or
// ctx is cancelled.
func syncOnSchedule(parent context.Context, a *app, sched cron.Schedule) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		result, err := a.syncer.Sync(ctx)
		printSyncOutcome(a, result, err)
		if err == nil {
			cancel()
		}
	}))

	fmt.Fprintf(a.out, "Retrying on schedule, next attempt at %s\n", sched.Next(time.Now()).Format("15:04:05"))

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	if err := parent.Err(); err != nil {
		return fmt.Errorf("sync interrupted: %w", err)
	}
	return nil
}

func printSyncOutcome(a *app, result bookmarks.SyncResult, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "⚠ Could not upload %d saved bookmark(s): %v\n", len(result.Pending), err)
		fmt.Fprintln(a.out, "  They stay on this device and will be retried: dealbook sync")
	case len(result.Submitted) > 0:
		fmt.Fprintf(a.out, "✓ Uploaded %d saved bookmark(s): %s\n", len(result.Submitted), strings.Join(result.Submitted, ", "))
	case len(result.AlreadySynced) > 0:
		fmt.Fprintln(a.out, "✓ Saved bookmarks were already in your account.")
	}
}
