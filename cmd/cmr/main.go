package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cmr/internal/config"
	"github.com/nvandessel/cmr/internal/simulation"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cmr",
		Short: "Context Maintenance and Retrieval free-recall simulator",
		Long: `cmr simulates free recall with the Context Maintenance and Retrieval model.

A study list is encoded into either the classic matrix memory or the
instance memory, then recalled until the model decides to stop. Runs can
be summarized, stored in SQLite, and scored against observed recalls.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.cmr/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace")
	rootCmd.PersistentFlags().String("db", "", "SQLite trial database (overrides output.db_path)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newLikelihoodCmd(),
		newConfigCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "cmr version %s\n", version)
			}
		},
	}
}

// loadConfig loads configuration and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Output.DBPath = db
	}
	return cfg, nil
}

// scenarioFromConfig builds the simulation scenario a validated config describes.
func scenarioFromConfig(name string, cfg *config.Config) (simulation.Scenario, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return simulation.Scenario{}, err
	}
	params, err := cfg.ModelParameters()
	if err != nil {
		return simulation.Scenario{}, err
	}
	return simulation.Scenario{
		Name:       name,
		Kind:       kind,
		ItemCount:  cfg.Simulation.ItemCount,
		Parameters: params,
		Order:      cfg.Simulation.Order,
		Trials:     cfg.Simulation.Trials,
		Seed:       cfg.Simulation.Seed,
		MaxRecalls: cfg.Simulation.MaxRecalls,
	}, nil
}

// signalContext returns a context canceled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, interruptSignals...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
