package usecase

import (
	"errors"
	"fmt"

	"mediafetch/internal/domain"
)

var (
	ErrExtractor  = errors.New("extractor error")
	ErrRepository = errors.New("repository error")
)

// wrapExtractor tags an extractor failure so callers can distinguish it from
// input errors. Domain sentinels pass through untouched; they already carry
// a precise meaning for the HTTP layer.
func wrapExtractor(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidPlaylistItems) || errors.Is(err, domain.ErrInvalidURL) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrExtractor, err)
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}
