// Package pipeline runs one word through the oracle and stores the parsed verdicts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/wordrules/internal/llm"
	"github.com/ppiankov/wordrules/internal/metrics"
	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/parse"
	"github.com/ppiankov/wordrules/internal/rules"
	"github.com/ppiankov/wordrules/internal/store"
)

// ErrWordExists is returned when the word already has a record and Force is not set
var ErrWordExists = errors.New("word already validated")

// Throttle paces oracle calls; worker.Limiter satisfies it
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// Options controls the identity policy of one validation
type Options struct {
	// Force overwrites an existing record for the same word
	Force bool

	// WordID re-validates the stored word under this id and overwrites it
	WordID int
}

// Outcome describes one completed validation
type Outcome struct {
	RunID      string
	Word       string
	ID         int
	Location   string
	Verdicts   []model.Verdict
	Answered   int
	Overwrote  bool
	Cached     bool
	Model      string
	TokensUsed int
	Duration   time.Duration
}

// Validator orchestrates catalog, oracle, parser and store
type Validator struct {
	catalog     *rules.Catalog
	prompt      string
	fingerprint string
	oracle      *llm.Oracle
	store       store.Store
	throttle    Throttle
	metrics     *metrics.Metrics
	logger      *slog.Logger

	// Held across Find, the oracle call and Save so two runs for one word
	// cannot both allocate a fresh id.
	words *store.KeyedMutex[string]
}

// Option configures a Validator
type Option func(*Validator)

// WithThrottle paces oracle calls
func WithThrottle(t Throttle) Option {
	return func(v *Validator) { v.throttle = t }
}

// WithMetrics records oracle and store metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator builds the system prompt from catalog once and reuses it for every word
func NewValidator(catalog *rules.Catalog, oracle *llm.Oracle, st store.Store, opts ...Option) *Validator {
	v := &Validator{
		catalog:     catalog,
		prompt:      llm.BuildSystemPrompt(catalog.Rules()),
		fingerprint: catalog.Fingerprint(),
		oracle:      oracle,
		store:       st,
		logger:      slog.Default(),
		words:       store.NewKeyedMutex[string](),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Catalog returns the rule catalog the prompt was built from
func (v *Validator) Catalog() *rules.Catalog {
	return v.catalog
}

// Ready probes the oracle provider before a run commits to many calls
func (v *Validator) Ready(ctx context.Context) error {
	p := v.oracle.Provider()
	if !p.IsAvailable(ctx) {
		return fmt.Errorf("%s: %w: provider not reachable", p.Name(), llm.ErrOracle)
	}
	return nil
}

// Validate asks the oracle about word and persists the dense verdict record.
// No record is written when the oracle fails or ctx ends first.
func (v *Validator) Validate(ctx context.Context, word string, opts Options) (*Outcome, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := v.logger.With("run_id", runID)

	id, word, err := v.resolve(word, opts, logger)
	if err != nil {
		return nil, err
	}

	unlock := v.words.Lock(word)
	defer unlock()

	overwrote := id > 0
	if opts.WordID == 0 {
		existing, err := v.store.Find(word)
		switch {
		case err == nil && !opts.Force:
			return &Outcome{RunID: runID, Word: word, ID: existing.SourceID},
				fmt.Errorf("%q (id %d): %w", word, existing.SourceID, ErrWordExists)
		case err == nil:
			id = existing.SourceID
			overwrote = true
			logger.Info("overwriting existing record", "word", word, "id", id)
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find %q: %w", word, err)
		}
	}

	provider := v.oracle.Provider().Name()
	if v.throttle != nil {
		if err := v.throttle.Wait(ctx, provider); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	logger.Debug("asking oracle", "word", word, "provider", provider, "rules", v.catalog.Len())
	callStart := time.Now()
	answer, err := v.oracle.Ask(ctx, v.prompt, v.fingerprint, word)
	if err != nil {
		v.metrics.ObserveOracle(provider, "error", time.Since(callStart))
		return nil, fmt.Errorf("ask oracle: %w", err)
	}
	outcome := "ok"
	if answer.Cached {
		outcome = "cached"
	}
	v.metrics.ObserveOracle(provider, outcome, time.Since(callStart))

	verdicts := parse.Parse(answer.Text)
	answered := parse.Answered(verdicts)
	v.metrics.ObserveAnswered(answered)

	// A deadline that fired during parsing still aborts before the write
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("validate %q: %w", word, err)
	}

	location, err := v.store.Save(word, verdicts, id)
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", word, err)
	}
	v.metrics.IncrementSaved("validate")

	if id == 0 {
		id, _ = store.IDFromLocation(location)
	}

	logger.Info("word validated",
		"word", word,
		"id", id,
		"answered", answered,
		"cached", answer.Cached,
		"location", location,
	)

	return &Outcome{
		RunID:      runID,
		Word:       word,
		ID:         id,
		Location:   location,
		Verdicts:   verdicts,
		Answered:   answered,
		Overwrote:  overwrote,
		Cached:     answer.Cached,
		Model:      answer.Model,
		TokensUsed: answer.TokensUsed,
		Duration:   time.Since(start),
	}, nil
}

// resolve picks the word and target id. With WordID set the stored word wins.
func (v *Validator) resolve(word string, opts Options, logger *slog.Logger) (int, string, error) {
	word = strings.TrimSpace(word)

	if opts.WordID < 0 {
		return 0, "", fmt.Errorf("invalid word id: %d", opts.WordID)
	}

	if opts.WordID > 0 {
		entry, err := v.store.Load(opts.WordID)
		if err != nil {
			return 0, "", fmt.Errorf("load word id %d: %w", opts.WordID, err)
		}
		if word != "" && word != entry.Record.Word {
			logger.Warn("word differs from stored record, using stored word",
				"given", word, "stored", entry.Record.Word, "id", opts.WordID)
		}
		return opts.WordID, entry.Record.Word, nil
	}

	if word == "" {
		return 0, "", fmt.Errorf("word must not be empty")
	}
	return 0, word, nil
}
