// Package pipeline wires export parsing, alignment and gold construction
// into one run, and writes the run's artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/gold"
	"github.com/irgroup/labelstudio-to-fonduer/internal/labelstudio"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
)

// Runner executes the align stage end to end.
type Runner struct {
	engine *align.Engine
	gold   model.GoldConfig
	log    *slog.Logger
}

// NewRunner builds a runner around a configured engine.
func NewRunner(engine *align.Engine, goldCfg model.GoldConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, gold: goldCfg, log: logger}
}

// Result contains everything one export produced.
type Result struct {
	Export  *model.Export
	Aligned *align.Result
	Summary align.Summary
	Table   *gold.Table
}

// RunFile parses and aligns one export file.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	exp, parseFails, err := labelstudio.ParseExport(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, exp, parseFails)
}

// RunBytes aligns export JSON fetched from the annotation tool's API.
func (r *Runner) RunBytes(ctx context.Context, data []byte) (*Result, error) {
	exp, parseFails, err := labelstudio.ParseExportBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, exp, parseFails)
}

// Run aligns a parsed export and builds its gold table. Parse failures are
// merged into the result so one report covers the whole run.
func (r *Runner) Run(ctx context.Context, exp *model.Export, parseFails []model.Failure) (*Result, error) {
	aligned, err := r.engine.AlignExport(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	aligned.Failures = append(parseFails, aligned.Failures...)

	table := gold.Build(aligned.Pairs, r.gold.Unordered)
	summary := align.Summarize(exp, aligned)
	r.log.Info("export aligned",
		"documents", summary.Documents,
		"entities", summary.Entities,
		"aligned", summary.Aligned,
		"pairs", summary.GoldPairs,
		"failures", len(aligned.Failures))

	return &Result{Export: exp, Aligned: aligned, Summary: summary, Table: table}, nil
}

// WriteJSON writes the full alignment result for downstream consumers.
func (r *Runner) WriteJSON(res *Result, path string) error {
	out := struct {
		Summary align.Summary `json:"summary"`
		*align.Result
	}{res.Summary, res.Aligned}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	r.log.Info("result written", "path", path)
	return nil
}

// WriteCSV writes the gold table as endpoint rows, optionally followed by
// every sentence the aligner considered.
func (r *Runner) WriteCSV(res *Result, path string) error {
	rows := gold.Rows(res.Table, nil)
	if r.gold.WithCandidates {
		for _, c := range res.Aligned.Candidates {
			rows = append(rows, gold.CorrespondenceRow(c, "Candidate"))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	if err := gold.WriteCSV(f, rows); err != nil {
		return err
	}
	r.log.Info("gold csv written", "path", path, "rows", len(rows))
	return nil
}
