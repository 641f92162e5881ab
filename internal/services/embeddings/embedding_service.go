package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// ErrEmbeddingFailed is returned once every attempt of an embedding call has failed
var ErrEmbeddingFailed = errors.New("embedding failed")

// APIError is a non-2xx answer from an embedding provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether the call may succeed if repeated: rate limits and server errors
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// isPermanent reports errors that another attempt cannot fix, such as a rejected key or bad request
func isPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}

// Default retry policy: three total attempts with a fixed one second pause between them
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 1 * time.Second
)

// RetryPolicy bounds the attempts made for one embedding call
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Service implements EmbeddingService over a single provider with a fixed-delay retry loop
type Service struct {
	provider interfaces.EmbeddingProvider
	policy   RetryPolicy
	logger   arbor.ILogger
}

// NewService creates a new embedding service
func NewService(provider interfaces.EmbeddingProvider, policy RetryPolicy, logger arbor.ILogger) interfaces.EmbeddingService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Backoff < 0 {
		policy.Backoff = DefaultBackoff
	}
	return &Service{
		provider: provider,
		policy:   policy,
		logger:   logger,
	}
}

// GenerateEmbedding creates a vector embedding for text.
// Each request retries independently; there is no shared backoff state.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		start := time.Now()
		embedding, err := s.provider.Embed(ctx, text)
		if err == nil && len(embedding) == 0 {
			err = fmt.Errorf("provider returned empty embedding")
		}
		if err == nil && s.provider.Dimension() > 0 && len(embedding) != s.provider.Dimension() {
			err = fmt.Errorf("provider returned %d dimensions, expected %d", len(embedding), s.provider.Dimension())
		}

		if err == nil {
			s.logger.Trace().
				Str("model", s.provider.Name()).
				Int("embedding_dim", len(embedding)).
				Int("attempt", attempt).
				Dur("duration", time.Since(start)).
				Msg("Generated embedding")
			return embedding, nil
		}

		lastErr = err
		if isPermanent(err) {
			s.logger.Error().
				Str("model", s.provider.Name()).
				Int("attempt", attempt).
				Err(err).
				Msg("Embedding call rejected, not retrying")
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		if attempt == s.policy.MaxAttempts {
			break
		}

		s.logger.Warn().
			Int("attempt", attempt).
			Dur("backoff", s.policy.Backoff).
			Err(err).
			Msg("Retrying embedding call")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, ctx.Err())
		case <-time.After(s.policy.Backoff):
		}
	}

	s.logger.Error().
		Str("model", s.provider.Name()).
		Int("attempts", s.policy.MaxAttempts).
		Err(lastErr).
		Msg("Embedding generation failed")

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, s.policy.MaxAttempts, lastErr)
}

// ModelName returns the provider model name
func (s *Service) ModelName() string {
	return s.provider.Name()
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.provider.Dimension()
}
