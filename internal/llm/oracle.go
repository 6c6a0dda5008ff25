package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/wordrules/internal/cache"
)

// Answer is an oracle reply plus where it came from
type Answer struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	Cached     bool   `json:"-"`
}

// Oracle asks a Provider about one word, caching replies per catalog
// fingerprint and collapsing concurrent identical questions into one call.
type Oracle struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
	model    string
	logger   *slog.Logger
	group    singleflight.Group
}

// OracleOption configures an Oracle
type OracleOption func(*Oracle)

// WithCache enables reply caching; a nil cache disables it
func WithCache(c cache.Cache, ttl time.Duration) OracleOption {
	return func(o *Oracle) {
		o.cache = c
		o.ttl = ttl
	}
}

// WithModel overrides the provider's configured model
func WithModel(model string) OracleOption {
	return func(o *Oracle) { o.model = model }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) OracleOption {
	return func(o *Oracle) { o.logger = logger }
}

// NewOracle wraps provider
func NewOracle(provider Provider, opts ...OracleOption) *Oracle {
	o := &Oracle{provider: provider, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = cache.Noop{}
	}
	return o
}

// Provider returns the wrapped provider
func (o *Oracle) Provider() Provider {
	return o.provider
}

// Ask sends word with the catalog prompt. fingerprint identifies the
// catalog the prompt was built from and scopes the cache entry.
func (o *Oracle) Ask(ctx context.Context, systemPrompt, fingerprint, word string) (*Answer, error) {
	key := cache.OracleKey(o.provider.Name(), o.model, fingerprint, word)

	if data, ok := o.cache.Get(key); ok {
		var cached Answer
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Cached = true
			o.logger.Debug("oracle: cache hit", "word", word, "provider", o.provider.Name())
			return &cached, nil
		}
		_ = o.cache.Delete(key)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared call outlives any single caller; each caller stops waiting on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (any, error) {
		resp, err := o.provider.Judge(flightCtx, JudgeRequest{
			SystemPrompt: systemPrompt,
			Word:         word,
			Model:        o.model,
		})
		if err != nil {
			return nil, err
		}

		answer := &Answer{Text: resp.Text, Model: resp.Model, TokensUsed: resp.TokensUsed}
		if data, err := json.Marshal(answer); err == nil {
			if err := o.cache.Set(key, data, o.ttl); err != nil {
				o.logger.Warn("oracle: cache write failed", "word", word, "error", err)
			}
		}
		return answer, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v, shared := res.Val, res.Shared

	answer := *v.(*Answer)
	if shared {
		o.logger.Debug("oracle: shared in-flight call", "word", word)
	}
	return &answer, nil
}
