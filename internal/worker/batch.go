package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
)

// Aligner runs one export file through the pipeline.
type Aligner interface {
	RunFile(ctx context.Context, path string) (*pipeline.Result, error)
}

// AlignJob aligns a single export file.
type AlignJob struct {
	Path    string
	Aligner Aligner
}

// Execute runs the job.
func (j *AlignJob) Execute(ctx context.Context) Result {
	res, err := j.Aligner.RunFile(ctx, j.Path)
	return &AlignResult{Path: j.Path, Run: res, Err: err}
}

// AlignResult is the outcome of one export file.
type AlignResult struct {
	Path string
	Run  *pipeline.Result
	Err  error
}

// GetError returns the job's error.
func (r *AlignResult) GetError() error { return r.Err }

// BatchProcessor aligns many export files concurrently.
type BatchProcessor struct {
	aligner     Aligner
	concurrency int
}

// NewBatchProcessor builds a processor running concurrency jobs at a time.
func NewBatchProcessor(aligner Aligner, concurrency int) *BatchProcessor {
	return &BatchProcessor{aligner: aligner, concurrency: concurrency}
}

// ProcessPaths aligns the given export files, results sorted by path.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*AlignResult {
	if len(paths) == 0 {
		return []*AlignResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&AlignJob{Path: path, Aligner: b.aligner})
	}

	results := pool.Wait()
	out := make([]*AlignResult, len(results))
	for i, r := range results {
		out[i] = r.(*AlignResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ProcessFile reads export paths from a list file and aligns them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*AlignResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read path list: %w", err)
	}
	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads one path per line, skipping blanks, comments and
// duplicates.
func ReadPathsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return paths, nil
}
