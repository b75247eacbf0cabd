package main

import (
	"github.com/spf13/cobra"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/service"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run cleanups and recycler purges on cron schedules",
	Long: `Run cleanup and empty-recycler on the cron schedules configured with
SCHEDULE_CLEANUP and SCHEDULE_EMPTY_RECYCLER until interrupted. Both operate on
SCHEDULE_FOLDER with the ages from SCHEDULE_CLEANUP_AGE and SCHEDULE_RECYCLER_AGE.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx, "schedule")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.ValidateNotifier(ctx); err != nil {
		return NewConfigError("SLACK_BOT_TOKEN", err.Error())
	}

	scheduler := service.NewScheduler(a.svc, a.cfg.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		return NewConfigError("SCHEDULE", err.Error())
	}
	if next := scheduler.NextRun(); next != nil {
		logger.Info.Printf("Next run at %s", next.Format("2006-01-02 15:04:05"))
	}

	<-ctx.Done()
	scheduler.Stop()
	return nil
}
