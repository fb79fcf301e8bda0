package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/color"
	"github.com/studydesk/storedoctor/pkg/metrics"
	"github.com/studydesk/storedoctor/pkg/model"
	"github.com/studydesk/storedoctor/pkg/progress"
)

var (
	sweepOffline    bool
	sweepSkipHealth bool
	sweepProgress   bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Scan the store and repair what can be repaired",
	Long: `Run one data-integrity sweep.

Phases run in a fixed order: key migration, structure validation, stale key
cleanup, config consistency, duplicate elimination, service health, orphan
removal and the storage report. The command exits non-zero when any phase
failed.

Use --offline to treat every remote service as unreachable without touching
the network, or --skip-health to leave offline flags alone entirely.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Close()

		s, err := a.openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		release, err := a.lease("sweep")
		if err != nil {
			return err
		}
		defer release()

		var checker health.Checker = a.checker()
		if sweepOffline {
			checker = health.Offline()
		}
		var reg *metrics.Registry
		if a.cfg.Metrics.Textfile != "" {
			reg = metrics.NewRegistry()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bar := progress.NewTerminal(os.Stderr, "sweep", sweepProgress && !jsonOutput)
		engine := a.engine(s, checker, sweepSkipHealth, reg, sweep.WithProgress(bar.Callback()))
		report, runErr := engine.Run(ctx)
		bar.Done()
		if report != nil {
			if jsonOutput {
				if err := outputJSON(report); err != nil {
					return err
				}
			} else {
				printReport(report)
			}
		}
		if reg != nil && runErr == nil {
			if err := reg.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
				a.logger.ErrorErr("write metrics textfile", err)
			}
		}
		if runErr != nil {
			return runErr
		}
		if n := report.Counts().Errors; n > 0 {
			return fmt.Errorf("sweep reported %d error action(s)", n)
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepOffline, "offline", false, "treat every remote service as unreachable")
	sweepCmd.Flags().BoolVar(&sweepSkipHealth, "skip-health", false, "skip the service health phase")
	sweepCmd.Flags().BoolVar(&sweepProgress, "progress", false, "draw a phase progress bar on stderr")
	rootCmd.AddCommand(sweepCmd)
}

func printReport(report *model.Report) {
	for _, a := range report.Actions {
		fmt.Println(formatAction(a))
	}
	c := report.Counts()
	score := fmt.Sprintf("%d/100", report.Record.Score)
	fmt.Printf("\n%s %s  (%d fixed, %d warnings, %d errors)\n",
		color.Header("Health score:"), color.Score(report.Record.Score, score), c.Fixed, c.Warnings, c.Errors)
}

func formatAction(a model.RepairAction) string {
	line := fmt.Sprintf("%s %s: %s", color.Severity(a.Severity, "["+string(a.Severity)+"]"), a.Category, a.Label)
	if a.Detail != "" {
		line += " — " + a.Detail
	}
	return line
}
