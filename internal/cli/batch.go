package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
	"github.com/irgroup/labelstudio-to-fonduer/internal/worker"
)

var (
	batchConcurrency int
	batchOutputDir   string
	batchTimeout     time.Duration
	batchListFile    string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <glob>...",
	Short: "Align multiple annotation exports in parallel",
	Long: `Batch aligns many export files concurrently against one store:
- Expand glob patterns (or read paths from a list file, one per line)
- Run the alignment pipeline on a bounded worker pool
- Write one result JSON and one gold CSV per export

Example:
  ls2fonduer batch "exports/**/*.json"
  ls2fonduer batch --file exports.txt --concurrency 8 --output-dir ./runs`,
	Args: cobra.ArbitraryArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./ls2fonduer-runs", "output directory for per-export artifacts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchListFile, "file", "", "read export paths from this file instead of globs")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchListFile == "" && len(args) == 0 {
		return fmt.Errorf("nothing to align: give glob patterns or --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	concurrency := cfg.Align.Workers
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	engine := align.NewEngine(st, cfg.Align, newTrees(cfg.Cache), logger)
	runner := pipeline.NewRunner(engine, cfg.Gold, logger)
	processor := worker.NewBatchProcessor(runner, concurrency)

	var results []*worker.AlignResult
	if batchListFile != "" {
		results, err = processor.ProcessFile(ctx, batchListFile)
		if err != nil {
			return err
		}
	} else {
		paths, err := expandGlobs(args)
		if err != nil {
			return err
		}
		results = processor.ProcessPaths(ctx, paths)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Exports:  %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Workers:  %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output:   %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	succeeded, failed := 0, 0
	var total align.Summary
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Err)
			continue
		}
		if err := writeRunArtifacts(runner, r); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, err)
			continue
		}
		succeeded++
		s := r.Run.Summary
		total.Documents += s.Documents
		total.Entities += s.Entities
		total.Aligned += s.Aligned
		total.GoldPairs += s.GoldPairs
		fmt.Fprintf(os.Stderr, "✓ %s: %d/%d entities aligned, %d pairs\n",
			r.Path, s.Aligned, s.Entities, s.GoldPairs)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Documents: %d\n", total.Documents)
	fmt.Fprintf(os.Stderr, "  Aligned:   %d/%d entities\n", total.Aligned, total.Entities)
	fmt.Fprintf(os.Stderr, "  Pairs:     %d\n", total.GoldPairs)
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}

// expandGlobs resolves doublestar patterns to a sorted, deduplicated path
// list. Literal paths pass through unchanged.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if matches == nil && !strings.ContainsAny(pattern, "*?[{") {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func writeRunArtifacts(runner *pipeline.Runner, r *worker.AlignResult) error {
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	if err := runner.WriteJSON(r.Run, filepath.Join(batchOutputDir, base+".result.json")); err != nil {
		return err
	}
	return runner.WriteCSV(r.Run, filepath.Join(batchOutputDir, base+".gold.csv"))
}
