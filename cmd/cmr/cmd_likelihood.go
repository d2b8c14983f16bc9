package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/cmr/internal/simulation"
)

func newLikelihoodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "likelihood <recalls.json>",
		Short: "Score observed recall sequences under the configured model",
		Long: `Replay observed recall sequences through the model and report the log
likelihood, including the final decision to stop.

The input is a JSON array of sequences of 0-based item indices, for
example [[0, 3, 1], [2], []]. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("model") {
				cfg.Model, _ = cmd.Flags().GetString("model")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			scenario, err := scenarioFromConfig("likelihood", cfg)
			if err != nil {
				return err
			}

			sequences, err := readSequences(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			res, err := simulation.Likelihood(scenario, sequences)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sequences:      %d\n", len(sequences))
			fmt.Fprintf(cmd.OutOrStdout(), "Log likelihood: %.6f\n", res.LogLikelihood)
			return nil
		},
	}
	cmd.Flags().String("model", "", "Memory model: classic or instance")
	return cmd
}

func readSequences(stdin io.Reader, path string) ([][]int, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recalls: %w", err)
	}

	var sequences [][]int
	if err := json.Unmarshal(data, &sequences); err != nil {
		return nil, fmt.Errorf("failed to parse recalls: %w", err)
	}
	return sequences, nil
}
