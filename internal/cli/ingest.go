package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/ingest"
)

var ingestGlob string

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus-dir>",
	Short: "Segment normalized HTML into sentences and persist them",
	Long: `Ingest parses each normalized HTML document, segments the flow text of
every element into sentences and stores one row per sentence with its
canonical element path. Re-ingesting a document replaces its previous
rows.

The corpus must have gone through convert first; the aligner assumes the
store and the annotation tool saw identical bytes.

Example:
  ls2fonduer ingest ./corpus
  ls2fonduer ingest ./corpus --store project.db`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestGlob, "glob", "", "file pattern relative to corpus-dir (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pattern := cfg.Ingest.Glob
	if ingestGlob != "" {
		pattern = ingestGlob
	}

	ing := ingest.NewIngester(st, cfg.Align.Wrappers, logger)
	results, err := ing.Dir(context.Background(), args[0], pattern)
	if err != nil {
		return err
	}

	total := 0
	for _, r := range results {
		total += r.Sentences
		fmt.Printf("✓ %s: %d sentences\n", r.Name, r.Sentences)
	}
	fmt.Printf("%d documents, %d sentences ingested into %s\n", len(results), total, cfg.Store.DSN)
	return nil
}
