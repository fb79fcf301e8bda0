package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/audit"
	"github.com/studydesk/storedoctor/pkg/color"
)

var auditPath string

var auditCmd = &cobra.Command{
	Use:   "audit <command>",
	Short: "Inspect the repair audit log",
	DisableFlagsInUseLine: true,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the audit log's hash chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Close()

		path := auditPath
		if path == "" {
			path = a.cfg.Audit.Path
		}
		if path == "" {
			return fmt.Errorf("no audit log configured (set audit.path or pass --path)")
		}

		n, err := audit.Verify(path)
		if jsonOutput {
			res := map[string]any{"path": path, "records": n, "ok": err == nil}
			if err != nil {
				res["error"] = err.Error()
			}
			if encErr := outputJSON(res); encErr != nil {
				return encErr
			}
			return err
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %d record(s) verified in %s\n", color.Greenf("ok"), n, path)
		return nil
	},
}

func init() {
	auditVerifyCmd.Flags().StringVar(&auditPath, "path", "", "audit log to verify (default audit.path)")
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}
