package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"smartdocs/internal/textproc"
)

// Dimension is the expected vector width of the embedding model.
// A mismatch signals a model/version change and is always fatal, since
// mixed-width vectors would corrupt downstream similarity math.
const Dimension = 1536

var (
	ErrEmptyText = errors.New("embedding input is empty")
	ErrDimension = errors.New("embedding dimension mismatch")
)

// Provider is the raw embedding call; ai.EmbeddingClient satisfies it.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddedChunk pairs a chunk with its vector and a UTC creation time.
type EmbeddedChunk struct {
	Chunk     textproc.Chunk
	Vector    []float32
	CreatedAt time.Time
}

type Options struct {
	// MaxAttempts bounds retries against the provider; backoff starts at
	// BaseDelay and doubles each attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	// RequestsPerMinute feeds a token-bucket limiter shared by every
	// caller of this service, so concurrent batch workers cannot
	// multiply the effective request rate.
	RequestsPerMinute int
	Dimension         int
}

// Service wraps a Provider with content-addressed caching, retry with
// exponential backoff, shared rate limiting and dimension validation.
type Service struct {
	provider    Provider
	cache       *Cache
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	dimension   int
}

func NewService(provider Provider, cache *Cache, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.Dimension <= 0 {
		opts.Dimension = Dimension
	}
	return &Service{
		provider:    provider,
		cache:       cache,
		limiter:     rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1),
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		dimension:   opts.Dimension,
	}
}

// Embed returns the vector for text, from cache when possible. A cache
// hit makes zero external calls and consumes no rate-limit budget.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}

	key := HashText(trimmed)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	vec, err := s.embedWithRetry(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimension, s.dimension, len(vec))
	}

	if err := s.cache.Put(key, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds every chunk in order. Dimensions are validated a
// second time here, right before the vectors head to storage. One bad
// chunk fails the whole batch; partial vector sets for a document would
// corrupt later retrieval.
func (s *Service) EmbedBatch(ctx context.Context, chunks []textproc.Chunk) ([]EmbeddedChunk, error) {
	out := make([]EmbeddedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s failed: %w", chunk.ID, err)
		}
		if len(vec) != s.dimension {
			return nil, fmt.Errorf("%w: chunk %s carries %d dims", ErrDimension, chunk.ID, len(vec))
		}
		out = append(out, EmbeddedChunk{
			Chunk:     chunk,
			Vector:    vec,
			CreatedAt: time.Now().UTC(),
		})
	}
	return out, nil
}

func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	delay := s.baseDelay
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		vec, err := s.provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if attempt == s.maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", s.maxAttempts, lastErr)
}
