package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/convert"
)

var convertGlob string

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <in-dir> <out-dir>",
	Short: "Normalize an HTML corpus for annotation and ingestion",
	Long: `Convert normalizes raw HTML so the annotation tool and the sentence
store see identical bytes: comments dropped, configured inline tags
flattened, whitespace runs collapsed. Offsets only transfer between the
two sides when both saw exactly the same bytes.

Cleaned names strip duplicate-download suffixes, so "doc (1).html"
becomes "doc.html".

Example:
  ls2fonduer convert ./raw ./corpus
  ls2fonduer convert ./raw ./corpus --glob "articles/**/*.html"`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertGlob, "glob", "", "file pattern relative to in-dir (default from config)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	pattern := cfg.Convert.Glob
	if convertGlob != "" {
		pattern = convertGlob
	}

	conv := convert.NewConverter(cfg.Convert, logger)
	results, err := conv.Dir(context.Background(), args[0], args[1], pattern)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("✓ %s -> %s\n", r.Source, r.Target)
	}
	fmt.Printf("%d documents normalized\n", len(results))
	return nil
}
