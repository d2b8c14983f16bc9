package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cmr/internal/pathutil"
	"github.com/nvandessel/cmr/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored simulation runs",
		Long: `List and export runs saved by 'cmr simulate' in the trial database.

Examples:
  cmr runs list --db runs.db
  cmr runs export 6f1c... --db runs.db > run.jsonl`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsExportCmd(),
	)
	return cmd
}

// openTrialStore opens the configured trial database.
func openTrialStore(cmd *cobra.Command) (*store.SQLiteTrialStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Output.DBPath == "" {
		return nil, fmt.Errorf("no trial database configured (use --db or output.db_path)")
	}
	if _, err := os.Stat(cfg.Output.DBPath); err != nil {
		return nil, fmt.Errorf("trial database %s: %w", pathutil.RedactPath(cfg.Output.DBPath), err)
	}
	return store.NewSQLiteTrialStore(cfg.Output.DBPath)
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openTrialStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs stored.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-8s items=%d trials=%d seed=%d  %s\n",
					r.ID, r.Name, r.Kind, r.ItemCount, r.Trials, r.Seed, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a run and its trials as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openTrialStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return store.ExportJSONL(cmd.Context(), s, args[0], cmd.OutOrStdout())
		},
	}
}
