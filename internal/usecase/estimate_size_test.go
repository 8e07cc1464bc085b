package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

func TestEstimateSizeProjection(t *testing.T) {
	tests := []struct {
		name string
		req  ports.SizeRequest
		raw  int64
		want int64
	}{
		{
			name: "video passes through",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeVideo, Quality: "1080p"},
			raw:  5000,
			want: 5000,
		},
		{
			name: "audio mp3 scales",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeAudio, Format: "mp3"},
			raw:  1000,
			want: 1670,
		},
		{
			name: "audio m4a scales",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeAudio, Format: "m4a"},
			raw:  1000,
			want: 2670,
		},
		{
			name: "audio wav scales",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeAudio, Format: "wav"},
			raw:  6 * 1024 * 1024,
			want: int64(math.Round(6 * 1024 * 1024 * 12.85)),
		},
		{
			name: "audio opus is the identity",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeAudio, Format: "opus"},
			raw:  1000,
			want: 1000,
		},
		{
			name: "zero stays zero",
			req:  ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeAudio, Format: "wav"},
			raw:  0,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := EstimateSize{Extractor: &fakeRunner{estSize: tt.raw}}
			got, err := uc.Execute(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Fatalf("size = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateSizeWrapsExtractorError(t *testing.T) {
	uc := EstimateSize{Extractor: &fakeRunner{estErr: errors.New("timed out")}}

	_, err := uc.Execute(context.Background(), ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeVideo})
	if !errors.Is(err, ErrExtractor) {
		t.Fatalf("error = %v, want ErrExtractor", err)
	}
}

func TestEstimateSizeKeepsPlaylistSelectionError(t *testing.T) {
	badSelection := fmt.Errorf("%w: %q is not an index", domain.ErrInvalidPlaylistItems, "x")
	uc := EstimateSize{Extractor: &fakeRunner{estErr: badSelection}}

	_, err := uc.Execute(context.Background(), ports.SizeRequest{URL: "https://youtu.be/a", Mode: domain.ModeVideo, PlaylistItems: "x"})
	if !errors.Is(err, domain.ErrInvalidPlaylistItems) {
		t.Fatalf("error = %v, want ErrInvalidPlaylistItems", err)
	}
	if errors.Is(err, ErrExtractor) {
		t.Fatalf("selection error should not be tagged as ErrExtractor")
	}
}
