package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	jsonOutput  bool
	configPath  string
	storeFlag   string
	backendFlag string
	noColor     bool
	logLevel    string

	rootCmd = &cobra.Command{
		Use:   "storedoctor",
		Short: "storedoctor - data-integrity sweeps for a JSON key-value store",
		Long: `storedoctor scans a flat key-value store whose values are JSON blobs and
brings it back to a consistent state: it migrates legacy keys, repairs
corrupted or mis-shaped values, removes retired and orphaned keys, fixes
configuration drift, drops duplicate records, and probes remote services to
keep their offline flags accurate. Every sweep ends with a health score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	addGlobalFlags(rootCmd)
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $STOREDOCTOR_CONFIG or ~/.config/storedoctor/config.yaml)")
	cmd.PersistentFlags().StringVar(&storeFlag, "store", "", "store path, overrides store.path")
	cmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "store backend: file, sqlite or memory")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
