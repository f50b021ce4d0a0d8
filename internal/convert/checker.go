package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/irgroup/labelstudio-to-fonduer/internal/store"
)

// Finding kinds reported by the checker.
const (
	NotIdempotent = "not_idempotent"
	StoreMismatch = "store_mismatch"
	NotIngested   = "not_ingested"
)

// Finding is one verification defect in a converted document.
type Finding struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Diff string `json:"diff,omitempty"`
}

// TextSource is the read side of the store the checker compares against.
type TextSource interface {
	DocumentID(ctx context.Context, name string) (int64, error)
	DocumentText(ctx context.Context, id int64) (string, error)
}

// Checker verifies that converted documents survived the trip into the
// store unchanged. Offsets only transfer between the two sides when both
// saw exactly the same bytes, so any drift here invalidates alignment.
type Checker struct {
	conv *Converter
	src  TextSource // nil skips store comparison
	log  *slog.Logger
}

// NewChecker builds a checker. src may be nil.
func NewChecker(conv *Converter, src TextSource, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{conv: conv, src: src, log: logger}
}

// CheckFile verifies one converted document: its content must be a fixed
// point of Normalize, and when a store is attached the stored text must
// match byte for byte.
func (k *Checker) CheckFile(ctx context.Context, path string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	content := string(data)

	base := CleanName(filepath.Base(path))
	name := strings.TrimSuffix(base, filepath.Ext(base))

	var findings []Finding
	again, err := k.conv.Normalize(content)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", path, err)
	}
	if again != content {
		findings = append(findings, Finding{Name: name, Kind: NotIdempotent, Diff: renderDiff(content, again)})
	}

	if k.src != nil {
		id, err := k.src.DocumentID(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			findings = append(findings, Finding{Name: name, Kind: NotIngested})
		case err != nil:
			return nil, err
		default:
			stored, err := k.src.DocumentText(ctx, id)
			if err != nil {
				return nil, err
			}
			if stored != content {
				findings = append(findings, Finding{Name: name, Kind: StoreMismatch, Diff: renderDiff(content, stored)})
			}
		}
	}

	for _, f := range findings {
		k.log.Warn("verification failed", "document", f.Name, "kind", f.Kind)
	}
	return findings, nil
}

// CheckDir verifies every file under root matching the doublestar pattern.
func (k *Checker) CheckDir(ctx context.Context, root, pattern string) ([]Finding, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var findings []Finding
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		fs, err := k.CheckFile(ctx, filepath.Join(root, m))
		if err != nil {
			return findings, err
		}
		findings = append(findings, fs...)
	}
	return findings, nil
}

// renderDiff formats the differences between two texts, eliding unchanged
// runs down to short context.
func renderDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var out strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			out.WriteString("-" + d.Text)
		case diffmatchpatch.DiffInsert:
			out.WriteString("+" + d.Text)
		case diffmatchpatch.DiffEqual:
			out.WriteString(elide(d.Text))
		}
	}
	return out.String()
}

func elide(s string) string {
	const context = 20
	r := []rune(s)
	if len(r) <= 2*context {
		return s
	}
	return string(r[:context]) + " […] " + string(r[len(r)-context:])
}
