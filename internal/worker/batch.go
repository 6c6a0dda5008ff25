package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/wordrules/internal/pipeline"
)

// Validator validates one word
type Validator interface {
	Validate(ctx context.Context, word string, opts pipeline.Options) (*pipeline.Outcome, error)
}

// ValidateResult is the result of one word's validation
type ValidateResult struct {
	Index   int
	Word    string
	Outcome *pipeline.Outcome
	Error   error
}

// BatchProcessor validates many words concurrently
type BatchProcessor struct {
	validator   Validator
	concurrency int
	options     pipeline.Options
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(validator Validator, concurrency int, options pipeline.Options) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
		options:     options,
	}
}

// ProcessWords validates words and returns results in input order.
// A failing word never stops the others.
func (b *BatchProcessor) ProcessWords(ctx context.Context, words []string) []*ValidateResult {
	if len(words) == 0 {
		return []*ValidateResult{}
	}

	pool := NewPool[*ValidateResult](ctx, b.concurrency)
	for i, word := range words {
		_, ok := pool.Submit(func(ctx context.Context) *ValidateResult {
			outcome, err := b.validator.Validate(ctx, word, b.options)
			return &ValidateResult{Index: i, Word: word, Outcome: outcome, Error: err}
		})
		if !ok {
			break
		}
	}
	results := pool.Wait()

	// Submission order matches input order, so pool indexes are word indexes
	out := make([]*ValidateResult, len(words))
	for i, word := range words {
		if r, ok := results[i]; ok {
			out[i] = r
			continue
		}
		out[i] = &ValidateResult{Index: i, Word: word, Error: fmt.Errorf("not started: %w", context.Cause(ctx))}
	}
	return out
}

// ProcessFile reads words from a file and validates them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ValidateResult, error) {
	words, err := ReadWordsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}

	return b.ProcessWords(ctx, words), nil
}

// ReadWordsFromFile reads one word per line, skipping blanks, # comments and repeats
func ReadWordsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var words []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			words = append(words, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return words, nil
}
