package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/wordrules/internal/model"
)

func limitCfg(rps float64, burst int, providers map[string]model.RateLimit) model.RateLimitingConfig {
	return model.RateLimitingConfig{
		RateLimit: model.RateLimit{RequestsPerSecond: rps, BurstSize: burst},
		Providers: providers,
	}
}

func TestLimiter_Limit(t *testing.T) {
	limiter := NewLimiter(limitCfg(2, 0, map[string]model.RateLimit{
		"ollama": {RequestsPerSecond: 0, BurstSize: 4},
	}))

	if got := limiter.Limit("openai"); got.RequestsPerSecond != 2 || got.BurstSize != 1 {
		t.Errorf("expected fallback 2 req/s burst 1, got %+v", got)
	}
	if got := limiter.Limit("ollama"); got.RequestsPerSecond != 0 || got.BurstSize != 4 {
		t.Errorf("expected ollama override, got %+v", got)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(limitCfg(100, 1, nil))
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "anthropic"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewLimiter(limitCfg(0.01, 1, nil))
	_ = limiter.Wait(context.Background(), "openai")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "openai"); err == nil {
		t.Error("expected error when context ends before a token is available")
	}
}

func TestLimiter_BucketsArePerProvider(t *testing.T) {
	limiter := NewLimiter(limitCfg(1, 1, nil))

	if err := limiter.Wait(context.Background(), "openai"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// burst 1 is consumed
	if limiter.Allow("openai") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("gemini") {
		t.Errorf("expected allow for other provider")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(limitCfg(0, 1, nil))
	for i := 0; i < 10; i++ {
		if !limiter.Allow("ollama") {
			t.Fatalf("call %d throttled with unlimited rate", i)
		}
	}
}

func TestLimiter_Override(t *testing.T) {
	limiter := NewLimiter(limitCfg(10, 10, map[string]model.RateLimit{
		"anthropic": {RequestsPerSecond: 0.1, BurstSize: 1},
		"ollama":    {RequestsPerSecond: 0},
	}))

	if !limiter.Allow("anthropic") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("anthropic") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("openai") {
		t.Errorf("other provider should pass")
	}
	for i := 0; i < 5; i++ {
		if !limiter.Allow("ollama") {
			t.Fatalf("unlimited override throttled at call %d", i)
		}
	}
}
