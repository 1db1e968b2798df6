package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var historyDB string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded synthesis runs",
	}

	cmd.PersistentFlags().StringVar(&historyDB, "db", defaultHistoryPath(), "path to the run history database")

	cmd.AddCommand(
		newHistoryListCommand(&historyDB),
		newHistoryShowCommand(&historyDB),
	)

	return cmd
}

// openHistory opens the run history store without running migrations;
// a history that has never been written is reported, not created.
func openHistory(cmd *cobra.Command, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	if err := store.Init(cmd.Context()); err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate run history: %w", err)
	}
	return store, nil
}

func newHistoryListCommand(historyDB *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent synthesis runs",
		Example: `  # Last 20 runs across all environments
  stratctl history list

  # Last 5 production runs
  stratctl -e prod history list --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, *historyDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), environment, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tENVIRONMENT\tSTATUS\tSTARTED\tDURATION")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					run.Environment,
					run.Status,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

func newHistoryShowCommand(historyDB *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, *historyDB)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run:         %s\n", run.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Environment: %s\n", run.Environment)
			fmt.Fprintf(cmd.OutOrStdout(), "Status:      %s\n", run.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(cmd.OutOrStdout(), "Completed:   %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))

			var order []string
			if err := json.Unmarshal([]byte(run.ModuleOrder), &order); err == nil && len(order) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Order:       %v\n", order)
			}

			var registry map[string]string
			if err := json.Unmarshal([]byte(run.Registry), &registry); err == nil && len(registry) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Outputs (%d):\n", len(registry))
				for _, path := range sortedMapKeys(registry) {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", path, registry[path])
				}
			}

			var findings []string
			if err := json.Unmarshal([]byte(run.Findings), &findings); err == nil && len(findings) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Findings:\n")
				for _, f := range findings {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", f)
				}
			}

			return nil
		},
	}

	return cmd
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
