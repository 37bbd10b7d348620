package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hszk-dev/redis-url-shortener/internal/metrics"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrURLRequired  = fmt.Errorf("%w: url is required", ErrInvalidInput)
)

type Service struct {
	ids  IDAllocator
	repo Repository
}

func NewService(ids IDAllocator, repo Repository) *Service {
	return &Service{
		ids:  ids,
		repo: repo,
	}
}

// ValidateURL only checks that rawURL is non-empty and starts with
// http:// or https://. Anything after the scheme is stored as given.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrURLRequired
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidInput, rawURL)
	}
	return nil
}

func (s *Service) Shorten(ctx context.Context, originalURL string) (string, error) {
	code, err := s.shorten(ctx, originalURL)
	metrics.ShortenTotal.WithLabelValues(outcome(err)).Inc()
	return code, err
}

func (s *Service) shorten(ctx context.Context, originalURL string) (string, error) {
	// 1. Reject bad input before touching the store
	if err := ValidateURL(originalURL); err != nil {
		return "", err
	}

	// 2. Allocate a fresh ID
	id, err := s.ids.NextID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to allocate id: %w", err)
	}

	// 3. Encode ID to Base62
	shortCode := Encode(id)

	// 4. Store the mapping. A failure here leaves a gap in the counter,
	// which is fine: IDs are never reused.
	if err := s.repo.Put(ctx, shortCode, originalURL); err != nil {
		return "", fmt.Errorf("failed to save url: %w", err)
	}

	return shortCode, nil
}

func (s *Service) Resolve(ctx context.Context, shortCode string) (string, error) {
	originalURL, err := s.resolve(ctx, shortCode)
	metrics.ResolveTotal.WithLabelValues(outcome(err)).Inc()
	return originalURL, err
}

// resolve is an exact-key lookup; any code that was never issued, whatever
// its shape, is ErrNotFound.
func (s *Service) resolve(ctx context.Context, shortCode string) (string, error) {
	originalURL, err := s.repo.Get(ctx, shortCode)
	if err != nil {
		return "", err // Pass through ErrNotFound or store errors
	}

	return originalURL, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}
