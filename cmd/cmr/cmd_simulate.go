package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cmr/internal/logging"
	"github.com/nvandessel/cmr/internal/pathutil"
	"github.com/nvandessel/cmr/internal/simulation"
	"github.com/nvandessel/cmr/internal/store"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate free-recall trials",
		Long: `Encode the configured study list and free-recall it once per trial.

Each trial is an independent simulated subject seeded with seed+trial.
When a database is configured the run and its trials are stored.

Examples:
  cmr simulate --model instance --items 12 --trials 1000
  cmr simulate --seed 7 --db runs.db --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("model") {
				cfg.Model, _ = cmd.Flags().GetString("model")
			}
			if cmd.Flags().Changed("items") {
				cfg.Simulation.ItemCount, _ = cmd.Flags().GetInt("items")
				cfg.Simulation.Order = nil
			}
			if cmd.Flags().Changed("trials") {
				cfg.Simulation.Trials, _ = cmd.Flags().GetInt("trials")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = fmt.Sprintf("%s-%d", cfg.Model, cfg.Simulation.ItemCount)
			}
			scenario, err := scenarioFromConfig(name, cfg)
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
			decisions := logging.NewDecisionLogger(cfg.Output.Dir, cfg.Logging.Level)
			defer decisions.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			runner := simulation.NewRunner(
				simulation.WithLogger(logger),
				simulation.WithDecisionLogger(decisions))
			result, err := runner.Run(ctx, scenario)
			if err != nil {
				return err
			}
			summary := simulation.Summarize(result)

			var runID string
			if cfg.Output.DBPath != "" {
				s, err := store.NewSQLiteTrialStore(cfg.Output.DBPath)
				if err != nil {
					return err
				}
				defer s.Close()
				run, trials := store.FromResult(result)
				saved, err := s.SaveRun(ctx, run, trials)
				if err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
				runID = saved.ID
				logger.Info("run saved", "run_id", runID, "db", pathutil.RedactPath(cfg.Output.DBPath))
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"run_id":   runID,
					"scenario": scenario.Name,
					"model":    string(scenario.Kind),
					"summary":  summary,
				})
			}
			printSummary(cmd.OutOrStdout(), scenario, summary, runID)
			return nil
		},
	}

	cmd.Flags().String("model", "", "Memory model: classic or instance")
	cmd.Flags().Int("items", 0, "Number of list items (presents each once)")
	cmd.Flags().Int("trials", 0, "Number of trials")
	cmd.Flags().Uint64("seed", 0, "Seed of the first trial")
	cmd.Flags().String("name", "", "Run name (default <model>-<items>)")
	return cmd
}

func printSummary(w io.Writer, scenario simulation.Scenario, s simulation.Summary, runID string) {
	fmt.Fprintf(w, "Scenario %s (%s, %d items, %d trials)\n", scenario.Name, scenario.Kind, scenario.ItemCount, s.Trials)
	if runID != "" {
		fmt.Fprintf(w, "Run id: %s\n", runID)
	}
	fmt.Fprintf(w, "Mean recalled: %.3f (sd %.3f)\n", s.MeanRecalled, s.StdRecalled)
	fmt.Fprintf(w, "Empty recalls: %.3f\n", s.EmptyRecall)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Position  Recall  First")
	for i := range s.SerialPosition {
		fmt.Fprintf(w, "%8d  %6.3f  %5.3f\n", i+1, s.SerialPosition[i], s.FirstRecall[i])
	}
	fmt.Fprintln(w, strings.Repeat("-", 23))
}
