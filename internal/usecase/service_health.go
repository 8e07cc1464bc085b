package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/metrics"
)

// ServiceHealth assembles the health snapshot. The extractor version probe
// and the disk check are best effort; their fields stay empty when the
// probes fail.
type ServiceHealth struct {
	Registry  ports.Registry
	Extractor ports.Extractor
	Logger    *slog.Logger
	Version   string
	DataDir   string
	Now       func() time.Time
}

func (uc ServiceHealth) Execute(ctx context.Context) domain.ServiceHealth {
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	health := domain.ServiceHealth{
		Status:    "ok",
		Version:   uc.Version,
		Timestamp: now(),
	}

	if uc.Registry != nil {
		for _, p := range uc.Registry.SnapshotAll() {
			if !p.Status.IsTerminal() {
				health.ActiveDownloads++
			}
		}
	}

	if uc.Extractor != nil {
		version, err := uc.Extractor.Version(ctx)
		if err != nil {
			if uc.Logger != nil {
				uc.Logger.Warn("extractor version probe failed", slog.String("error", err.Error()))
			}
		} else {
			health.ExtractorVersion = version
		}
	}

	if uc.DataDir != "" {
		free, err := diskFreeBytes(uc.DataDir)
		if err == nil {
			health.DiskFreeBytes = free
			health.DiskFree = humanize.IBytes(uint64(free))
			metrics.DiskFreeBytes.Set(float64(free))
		}
	}

	return health
}
