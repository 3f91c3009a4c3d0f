package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/tabsort/internal/model"
)

// Analyzer classifies one text
type Analyzer interface {
	Analyze(ctx context.Context, text string) model.ClassificationResult
}

// AnalyzeJob classifies one line of a batch
type AnalyzeJob struct {
	Index    int
	Text     string
	Analyzer Analyzer
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	return &AnalyzeResult{
		Index:  j.Index,
		Text:   j.Text,
		Result: j.Analyzer.Analyze(ctx, j.Text),
	}
}

// AnalyzeResult pairs an input line with its classification
type AnalyzeResult struct {
	Index  int                        `json:"index"`
	Text   string                     `json:"text"`
	Result model.ClassificationResult `json:"result"`
}

// GetError returns the classification error, if any
func (r *AnalyzeResult) GetError() error {
	if r.Result.OK() {
		return nil
	}
	return errors.New(r.Result.Error)
}

// BatchProcessor classifies many texts concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessTexts classifies texts concurrently and returns results in input order.
// Texts not started before ctx is cancelled are reported as errors.
func (b *BatchProcessor) ProcessTexts(ctx context.Context, texts []string) []*AnalyzeResult {
	if len(texts) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, text := range texts {
		pool.Submit(&AnalyzeJob{
			Index:    i,
			Text:     text,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	out := make([]*AnalyzeResult, len(texts))
	for _, r := range results {
		ar := r.(*AnalyzeResult)
		out[ar.Index] = ar
	}
	for i := range out {
		if out[i] == nil {
			out[i] = &AnalyzeResult{
				Index: i,
				Text:  texts[i],
				Result: model.ClassificationResult{
					Status: model.StatusError,
					Error:  fmt.Sprintf("not processed: %v", context.Cause(ctx)),
				},
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads texts from a file and classifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	texts, err := ReadLines(filePath)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}

	return b.ProcessTexts(ctx, texts), nil
}

// ReadLines reads one text per line, skipping blank lines and # comments
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
