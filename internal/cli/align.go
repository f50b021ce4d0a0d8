package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
)

var (
	alignJSONOut        string
	alignCSVOut         string
	alignWithCandidates bool
	alignUnordered      bool
)

// alignCmd represents the align command
var alignCmd = &cobra.Command{
	Use:   "align <export.json>",
	Short: "Align an annotation export with the sentence store",
	Long: `Align reads an annotation export, resolves each entity's relative path
against the task HTML, finds the matching sentence in the store and builds
the gold table from the aligned relations.

Per-entity failures (unresolvable paths, missing or ambiguous sentences)
are recorded and reported; they never abort the run.

Example:
  ls2fonduer align export.json --csv gold.csv
  ls2fonduer align export.json --json result.json --with-candidates`,
	Args: cobra.ExactArgs(1),
	RunE: runAlign,
}

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringVar(&alignJSONOut, "json", "", "write the full alignment result to this JSON file")
	alignCmd.Flags().StringVar(&alignCSVOut, "csv", "", "write the gold table to this CSV file")
	alignCmd.Flags().BoolVar(&alignWithCandidates, "with-candidates", false, "include every considered sentence in the CSV")
	alignCmd.Flags().BoolVar(&alignUnordered, "unordered", false, "ignore endpoint order when building gold pairs")
}

func runAlign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if alignWithCandidates {
		cfg.Gold.WithCandidates = true
	}
	if alignUnordered {
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

	if alignJSONOut != "" {
		if err := runner.WriteJSON(res, alignJSONOut); err != nil {
			return err
		}
	}
	if alignCSVOut != "" {
		if err := runner.WriteCSV(res, alignCSVOut); err != nil {
			return err
		}
	}

	fmt.Print(res.Summary.Render())
	return nil
}
