package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
)

type mockAligner struct {
	calls    int32
	failPath string
}

func (m *mockAligner) RunFile(ctx context.Context, path string) (*pipeline.Result, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(2 * time.Millisecond)
	if path == m.failPath {
		return nil, errors.New("parse failed")
	}
	return &pipeline.Result{Summary: align.Summary{Documents: 1}}, nil
}

func TestProcessPaths(t *testing.T) {
	aligner := &mockAligner{}
	bp := NewBatchProcessor(aligner, 3)

	paths := []string{"c.json", "a.json", "b.json"}
	results := bp.ProcessPaths(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !sort.SliceIsSorted(results, func(i, j int) bool { return results[i].Path < results[j].Path }) {
		t.Error("results not sorted by path")
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: unexpected error: %v", r.Path, r.Err)
		}
		if r.Run == nil || r.Run.Summary.Documents != 1 {
			t.Errorf("%s: missing run result", r.Path)
		}
	}
	if n := atomic.LoadInt32(&aligner.calls); n != 3 {
		t.Errorf("expected 3 aligner calls, got %d", n)
	}
}

func TestProcessPathsEmpty(t *testing.T) {
	bp := NewBatchProcessor(&mockAligner{}, 2)
	results := bp.ProcessPaths(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty result slice, got %v", results)
	}
}

func TestProcessPathsKeepsErrors(t *testing.T) {
	aligner := &mockAligner{failPath: "bad.json"}
	bp := NewBatchProcessor(aligner, 2)

	results := bp.ProcessPaths(context.Background(), []string{"bad.json", "good.json"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Path != "bad.json" || results[0].Err == nil {
		t.Errorf("expected bad.json first with error, got %s err=%v", results[0].Path, results[0].Err)
	}
	if results[0].Run != nil {
		t.Error("failed job should carry no run result")
	}
	if results[1].Err != nil {
		t.Errorf("good.json should succeed, got %v", results[1].Err)
	}
}

func TestProcessPathsLargeBatch(t *testing.T) {
	aligner := &mockAligner{}
	bp := NewBatchProcessor(aligner, 2)

	paths := make([]string, 50)
	for i := range paths {
		paths[i] = fmt.Sprintf("export-%02d.json", i)
	}

	results := bp.ProcessPaths(context.Background(), paths)
	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "exports.txt")
	content := strings.Join([]string{
		"# nightly exports",
		"a.json",
		"",
		"b.json",
		"a.json",
		"  c.json  ",
	}, "\n")
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	aligner := &mockAligner{}
	bp := NewBatchProcessor(aligner, 2)

	results, err := bp.ProcessFile(context.Background(), listPath)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results after dedupe, got %d", len(results))
	}
	want := []string{"a.json", "b.json", "c.json"}
	for i, r := range results {
		if r.Path != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], r.Path)
		}
	}
}

func TestProcessFileMissing(t *testing.T) {
	bp := NewBatchProcessor(&mockAligner{}, 1)
	if _, err := bp.ProcessFile(context.Background(), "/nonexistent/list.txt"); err == nil {
		t.Error("expected error for missing list file")
	}
}

func TestReadPathsFromFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "list.txt")
	content := "one.json\n# comment\n\ntwo.json\none.json\n"
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		t.Fatalf("ReadPathsFromFile: %v", err)
	}
	if len(paths) != 2 || paths[0] != "one.json" || paths[1] != "two.json" {
		t.Errorf("unexpected paths: %v", paths)
	}
}
