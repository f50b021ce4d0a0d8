package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/gold"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
)

var (
	evalCSVOut    string
	evalJSONOut   string
	evalUnordered bool
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <export.json> <candidates.json>",
	Short: "Judge downstream candidates against the gold table",
	Long: `Eval aligns the annotation export, builds the gold table from the aligned
relations and labels every downstream candidate: 1 when the candidate's
span pair is a gold pair, 0 otherwise.

Candidates are a JSON array of {document, confidence, spans} objects with
inclusive sentence-relative offsets.

Example:
  ls2fonduer eval export.json candidates.json
  ls2fonduer eval export.json candidates.json --csv eval.csv --json verdicts.json`,
	Args: cobra.ExactArgs(2),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalCSVOut, "csv", "", "write gold and candidate rows to this CSV file")
	evalCmd.Flags().StringVar(&evalJSONOut, "json", "", "write verdicts and stats to this JSON file")
	evalCmd.Flags().BoolVar(&evalUnordered, "unordered", false, "ignore endpoint order when matching pairs")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if evalUnordered {
		cfg.Gold.Unordered = true
	}
	logger := newLogger(cfg.Log)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := align.NewEngine(st, cfg.Align, newTrees(cfg.Cache), logger)
	runner := pipeline.NewRunner(engine, cfg.Gold, logger)

	res, err := runner.RunFile(context.Background(), args[0])
	if err != nil {
		return err
	}

	cands, err := model.LoadCandidates(args[1])
	if err != nil {
		return err
	}

	oracle := gold.NewOracle(res.Table, logger)
	verdicts, stats := oracle.JudgeAll(cands)

	if evalCSVOut != "" {
		f, err := os.Create(evalCSVOut)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := gold.WriteCSV(f, gold.Rows(res.Table, cands)); err != nil {
			return err
		}
	}
	if evalJSONOut != "" {
		out := struct {
			Stats    gold.Stats     `json:"stats"`
			Verdicts []gold.Verdict `json:"verdicts"`
		}{stats, verdicts}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode verdicts: %w", err)
		}
		if err := os.WriteFile(evalJSONOut, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write verdicts: %w", err)
		}
	}

	fmt.Printf("Candidates:   %d\n", stats.Candidates)
	fmt.Printf("Gold:         %d\n", stats.Gold)
	fmt.Printf("Table pairs:  %d\n", stats.TablePairs)
	fmt.Printf("Matched:      %d\n", stats.Matched)
	return nil
}
