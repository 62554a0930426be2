package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
)

// Analyzer runs the full analysis of one dataset
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*model.Report, error)
}

// AnalysisJob analyses a single dataset
type AnalysisJob struct {
	Path     string
	Analyzer Analyzer
}

// Execute runs the analysis unless ctx is already done
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &AnalysisResult{Path: j.Path, Error: err}
	}
	start := time.Now()
	report, err := j.Analyzer.Analyze(ctx, j.Path)
	return &AnalysisResult{
		Path:     j.Path,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// AnalysisResult is the outcome of one dataset
type AnalysisResult struct {
	Path     string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the analysis error
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses many datasets concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessPaths analyses every path; results follow input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*AnalysisResult {
	jobs := make([]Job, len(paths))
	for i, p := range paths {
		jobs[i] = &AnalysisJob{Path: p, Analyzer: b.analyzer}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	out := make([]*AnalysisResult, len(results))
	for i, r := range results {
		out[i] = r.(*AnalysisResult)
	}
	return out
}

// ProcessFile reads dataset paths from a list file and analyses them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*AnalysisResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read dataset list: %w", err)
	}
	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads one dataset path or URL per line, skipping
// blanks and '#' comments. Relative paths resolve against the list file's
// directory; duplicates are dropped.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !isURL(line) {
			if !filepath.IsAbs(line) {
				line = filepath.Join(base, line)
			}
			line = filepath.Clean(line)
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

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
