package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tabsort/internal/model"
)

// mockAnalyzer classifies texts containing "fail" as errors
type mockAnalyzer struct{}

func (m *mockAnalyzer) Analyze(ctx context.Context, text string) model.ClassificationResult {
	time.Sleep(time.Millisecond)
	if strings.Contains(text, "fail") {
		return model.ClassificationResult{Status: model.StatusError, Error: "boom"}
	}
	return model.ClassificationResult{
		Category:        model.CategoryWork,
		ImportanceScore: 0.85,
		Method:          model.MethodKeyword,
		Status:          model.StatusSuccess,
	}
}

func TestBatchProcessor_ProcessTexts(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 3)

	texts := []string{"a", "fail here", "c", "d", "e", "f", "g"}
	results := processor.ProcessTexts(context.Background(), texts)

	if len(results) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(results))
	}

	for i, res := range results {
		if res.Index != i || res.Text != texts[i] {
			t.Errorf("result %d out of order: %+v", i, res)
		}
	}

	if results[1].GetError() == nil {
		t.Error("expected error for failing text")
	}
	if err := results[0].GetError(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)
	if got := processor.ProcessTexts(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessTexts(ctx, []string{"a", "b", "c"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res == nil || res.Index != i {
			t.Errorf("result %d missing or misplaced", i)
		}
	}
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.txt")
	content := "# header\nquarterly report\n\n   \nnetflix trailer\n  # indented comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}

	want := []string{"quarterly report", "netflix trailer"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}

	if _, err := ReadLines(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBatchProcessor(&mockAnalyzer{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
