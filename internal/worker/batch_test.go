package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
)

// MockAnalyzer implements Analyzer
type MockAnalyzer struct {
	FailOn string
}

func (m *MockAnalyzer) Analyze(ctx context.Context, path string) (*model.Report, error) {
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.FailOn != "" && strings.HasSuffix(path, m.FailOn) {
		return nil, errors.New("analysis error")
	}
	return &model.Report{Source: path}, nil
}

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasets.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{}, 2)

	paths := []string{"/data/a.xlsx", "/data/b.xlsx", "/data/c.xlsx"}
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
		}
		if res.Path != paths[i] {
			t.Errorf("expected result %d for %s, got %s", i, paths[i], res.Path)
		}
		if res.Report == nil || res.Report.Source != paths[i] {
			t.Errorf("expected report for %s", paths[i])
		}
	}
}

func TestBatchProcessor_ProcessPaths_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{FailOn: "bad.xlsx"}, 2)

	results := processor.ProcessPaths(context.Background(), []string{"good.xlsx", "bad.xlsx"})

	if results[0].Error != nil {
		t.Errorf("expected success for good.xlsx, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for bad.xlsx, got nil")
	}
	if results[1].Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestBatchProcessor_ProcessPaths_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockAnalyzer{}, 2)

	results := processor.ProcessPaths(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestAnalysisJob_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &AnalysisJob{Path: "a.xlsx", Analyzer: &MockAnalyzer{}}
	res := job.Execute(ctx).(*AnalysisResult)
	if !errors.Is(res.Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Error)
	}
}

func TestReadPathsFromFile(t *testing.T) {
	list := writeList(t, "wave1.xlsx\n# pilot excluded\n/abs/wave2.xlsx\n   \n sub/../wave3.csv  \nwave1.xlsx\nhttps://lab.example/wave4.xlsx\n")
	dir := filepath.Dir(list)

	paths, err := ReadPathsFromFile(list)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}

	expected := []string{
		filepath.Join(dir, "wave1.xlsx"),
		"/abs/wave2.xlsx",
		filepath.Join(dir, "wave3.csv"),
		"https://lab.example/wave4.xlsx",
	}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d: %v", len(expected), len(paths), paths)
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("expected path %s at index %d, got %s", expected[i], i, p)
		}
	}
}

func TestReadPathsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadPathsFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestAnalysisResult_GetError(t *testing.T) {
	r1 := &AnalysisResult{Path: "a.xlsx"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("analysis failed")
	r2 := &AnalysisResult{Path: "a.xlsx", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	list := writeList(t, "a.xlsx\nb.xlsx\n# comment\n\nc.xlsx\n")

	results, err := NewBatchProcessor(&MockAnalyzer{}, 2).ProcessFile(context.Background(), list)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	_, err := NewBatchProcessor(&MockAnalyzer{}, 2).ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	list := writeList(t, "")

	results, err := NewBatchProcessor(&MockAnalyzer{}, 2).ProcessFile(context.Background(), list)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}
