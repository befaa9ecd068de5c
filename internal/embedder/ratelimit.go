package embedder

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/askdocs/askdocs-go/internal/rag"
)

// RateLimited wraps an Embedder with a token-bucket limiter so that bulk
// indexing respects backend rate limits. Each Embed call consumes one token
// regardless of batch size; callers control batch granularity.
type RateLimited struct {
	inner   rag.Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter allowing rps requests per second
// with the given burst.
func NewRateLimited(inner rag.Embedder, rps float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed blocks until the limiter grants a token, then delegates to the
// wrapped embedder. A cancelled context aborts the wait.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedder: rate limit wait: %w", err)
	}
	return r.inner.Embed(ctx, texts)
}
