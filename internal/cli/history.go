package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/history"
	"github.com/studydesk/storedoctor/pkg/color"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sweeps, newest first",
	Args:  cobra.NoArgs,
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

		records, err := history.Load(s, a.registry.HistoryKey)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("No sweeps recorded yet.")
			return nil
		}

		fmt.Printf("%-20s  %5s  %5s  %8s\n", "TIME", "SCORE", "FIXED", "WARNINGS")
		for _, r := range records {
			fmt.Printf("%-20s  %5s  %5d  %8d\n",
				r.Timestamp.UTC().Format(time.RFC3339),
				color.Score(r.Score, fmt.Sprintf("%5d", r.Score)),
				r.Fixed, r.Warnings)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
