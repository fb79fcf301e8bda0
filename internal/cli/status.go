package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/history"
	"github.com/studydesk/storedoctor/internal/lock"
	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/color"
	"github.com/studydesk/storedoctor/pkg/model"
)

type statusResult struct {
	Backend   string              `json:"backend"`
	Path      string              `json:"path,omitempty"`
	Storage   *model.StorageStats `json:"storage"`
	LastSweep *time.Time          `json:"last_sweep,omitempty"`
	LastScore *int                `json:"last_score,omitempty"`
	Lease     model.LockState     `json:"lease"`
	Offline   []string            `json:"offline_services,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage usage and the last sweep without changing anything",
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

		stats, err := sweep.Measure(s, a.cfg.Sweep.CapacityBytes)
		if err != nil {
			return err
		}
		res := statusResult{
			Backend: a.cfg.Store.Backend,
			Path:    a.cfg.Store.Path,
			Storage: stats,
			Lease:   model.LockStateFree,
		}
		if t, ok, err := history.LastSweep(s, a.registry.LastSweepKey); err != nil {
			return err
		} else if ok {
			res.LastSweep = &t
		}
		if rec, ok, err := history.Latest(s, a.registry.HistoryKey); err != nil {
			return err
		} else if ok {
			res.LastScore = &rec.Score
		}
		for _, svc := range a.registry.Services {
			if v, _, err := s.Get(svc.OfflineFlag); err != nil {
				return err
			} else if v == "true" {
				res.Offline = append(res.Offline, svc.Name)
			}
		}
		if a.cfg.Store.Backend != store.BackendMemory {
			state, _, err := lock.NewManager(a.cfg.Store.Path, a.cfg.Lock.TTL).Status()
			if err != nil {
				return err
			}
			res.Lease = state
		}

		if jsonOutput {
			return outputJSON(res)
		}
		fmt.Printf("%s %s %s\n", color.Header("Store:"), res.Backend, color.Dim(res.Path))
		fmt.Printf("%s %s\n", color.Header("Usage:"), sweep.DescribeStorage(stats))
		if res.LastSweep != nil {
			fmt.Printf("%s %s", color.Header("Last sweep:"), res.LastSweep.Format(time.RFC3339))
			if res.LastScore != nil {
				fmt.Printf(" (score %s)", color.Score(*res.LastScore, fmt.Sprint(*res.LastScore)))
			}
			fmt.Println()
		} else {
			fmt.Printf("%s never\n", color.Header("Last sweep:"))
		}
		for _, name := range res.Offline {
			fmt.Printf("%s %s is in offline mode\n", color.Yellowf("!"), name)
		}
		fmt.Printf("%s %s\n", color.Header("Sweep lease:"), res.Lease)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
