package usecase

import (
	"context"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

type FetchMetadata struct {
	Extractor ports.Extractor
}

func (uc FetchMetadata) Execute(ctx context.Context, url string) (domain.VideoMetadata, error) {
	meta, err := uc.Extractor.Probe(ctx, url)
	if err != nil {
		return domain.VideoMetadata{}, wrapExtractor(err)
	}
	return meta, nil
}
