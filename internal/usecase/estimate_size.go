package usecase

import (
	"context"
	"math"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

// EstimateSize probes the extractor for the source byte count of a
// selection. The extractor reports the size of the streams it would fetch;
// for audio jobs the answer is scaled by the format's projection factor so
// it approximates the file produced after transcoding.
type EstimateSize struct {
	Extractor ports.Extractor
}

func (uc EstimateSize) Execute(ctx context.Context, req ports.SizeRequest) (int64, error) {
	raw, err := uc.Extractor.EstimateSize(ctx, req)
	if err != nil {
		return 0, wrapExtractor(err)
	}
	if req.Mode == domain.ModeAudio && raw > 0 {
		return int64(math.Round(float64(raw) * domain.ProjectionFactor(req.Format))), nil
	}
	return raw, nil
}
