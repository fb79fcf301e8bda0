package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store <command>",
	Short: "Read and write store keys directly",
	Long: `Read and write individual keys through the same interface the sweep uses.

Available commands:
  get <key>          - Print a value
  set <key> <value>  - Write a value
  delete <key>       - Remove a key
  keys               - List every key`,
	DisableFlagsInUseLine: true,
}

var storeGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, s store.Store) error {
			v, ok, err := s.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			if jsonOutput {
				return outputJSON(map[string]string{"key": args[0], "value": v})
			}
			fmt.Println(v)
			return nil
		})
	},
}

var storeSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, s store.Store) error {
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			a.logger.Debug("key set", map[string]any{"key": args[0]})
			return nil
		})
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, s store.Store) error {
			return s.Delete(args[0])
		})
	},
}

var storeKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, s store.Store) error {
			keys, err := s.Keys()
			if err != nil {
				return err
			}
			if jsonOutput {
				if keys == nil {
					keys = []string{}
				}
				return outputJSON(keys)
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		})
	},
}

func init() {
	storeCmd.AddCommand(storeGetCmd, storeSetCmd, storeDeleteCmd, storeKeysCmd)
	rootCmd.AddCommand(storeCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(a *app, s store.Store) error) error {
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
	return fn(a, s)
}
