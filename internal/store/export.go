package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// jsonlRecord is one line of an exported run: the run header first, then
// one line per trial.
type jsonlRecord struct {
	Type  string       `json:"type"` // "run" or "trial"
	Run   *Run         `json:"run,omitempty"`
	Trial *TrialRecord `json:"trial,omitempty"`
}

// ExportJSONL writes a run and its trials to w as JSON lines.
func ExportJSONL(ctx context.Context, s TrialStore, runID string, w io.Writer) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	trials, err := s.ListTrials(ctx, runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(jsonlRecord{Type: "run", Run: run}); err != nil {
		return fmt.Errorf("failed to write run %s: %w", runID, err)
	}
	for i := range trials {
		if err := enc.Encode(jsonlRecord{Type: "trial", Trial: &trials[i]}); err != nil {
			return fmt.Errorf("failed to write trial %d: %w", trials[i].Index, err)
		}
	}
	return nil
}

// ImportJSONL reads a run written by ExportJSONL and saves it into s under
// its original id.
func ImportJSONL(ctx context.Context, s TrialStore, r io.Reader) (Run, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	var (
		run    *Run
		trials []TrialRecord
	)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return Run{}, fmt.Errorf("line %d: %w", lineNum, err)
		}
		switch {
		case rec.Type == "run" && rec.Run != nil:
			if run != nil {
				return Run{}, fmt.Errorf("line %d: second run header", lineNum)
			}
			run = rec.Run
		case rec.Type == "trial" && rec.Trial != nil:
			if run == nil {
				return Run{}, fmt.Errorf("line %d: trial before run header", lineNum)
			}
			trials = append(trials, *rec.Trial)
		default:
			return Run{}, fmt.Errorf("line %d: unknown record type %q", lineNum, rec.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return Run{}, fmt.Errorf("scanner error: %w", err)
	}
	if run == nil {
		return Run{}, fmt.Errorf("no run header found")
	}
	return s.SaveRun(ctx, *run, trials)
}
