package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/convert"
	"github.com/irgroup/labelstudio-to-fonduer/internal/labelstudio"
)

var (
	verifyGlob  string
	verifyLSURL string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <corpus-dir>",
	Short: "Verify that the corpus is normalized and ingested byte-identically",
	Long: `Verify checks every converted document: normalizing it again must be the
identity, and the stored document text must equal the file bytes. A
mismatch on either side means annotation offsets will not transfer.

With --ls-url the annotation tool's API is probed as well.

Example:
  ls2fonduer verify ./corpus
  ls2fonduer verify ./corpus --ls-url http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyGlob, "glob", "", "file pattern relative to corpus-dir (default from config)")
	verifyCmd.Flags().StringVar(&verifyLSURL, "ls-url", "", "probe the annotation tool API at this URL")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	ctx := context.Background()

	pattern := cfg.Convert.Glob
	if verifyGlob != "" {
		pattern = verifyGlob
	}

	// The store side is only checked when the database already exists;
	// opening a fresh one would create an empty file.
	var src convert.TextSource
	if _, err := os.Stat(cfg.Store.DSN); err == nil {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		src = st
	} else {
		logger.Warn("store not found, skipping store checks", "dsn", cfg.Store.DSN)
	}

	conv := convert.NewConverter(cfg.Convert, logger)
	checker := convert.NewChecker(conv, src, logger)

	root := args[0]
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	failed := 0
	for _, m := range matches {
		findings, err := checker.CheckFile(ctx, filepath.Join(root, m))
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			fmt.Printf("✓ %s\n", m)
			continue
		}
		failed++
		for _, f := range findings {
			fmt.Printf("✗ %s: %s\n", m, f.Kind)
			if f.Diff != "" {
				fmt.Println(f.Diff)
			}
		}
	}

	if verifyLSURL != "" {
		cfg.LabelStudio.URL = verifyLSURL
		client, err := labelstudio.NewClient(cfg.LabelStudio, logger)
		if err != nil {
			return err
		}
		version, err := client.CheckConnection(ctx)
		if err != nil {
			return fmt.Errorf("annotation tool unreachable: %w", err)
		}
		fmt.Printf("✓ annotation tool reachable (version %s)\n", version)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed verification", failed, len(matches))
	}
	fmt.Printf("%d documents verified\n", len(matches))
	return nil
}
