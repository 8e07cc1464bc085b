package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

// DiskPressure periodically checks available disk space on the download
// directory and pauses all active downloads when free space drops below
// MinFreeBytes. Paused jobs are resumed once free space exceeds ResumeBytes
// (hysteresis prevents rapid pause/resume cycles).
type DiskPressure struct {
	Registry     ports.Registry
	Resume       ResumeDownload
	Logger       *slog.Logger
	DataDir      string
	MinFreeBytes int64 // threshold below which downloads are paused
	ResumeBytes  int64 // threshold above which downloads may resume
	Interval     time.Duration

	// diskFreeFunc overrides the disk probe in tests.
	diskFreeFunc func(path string) (int64, error)
}

// Run starts the periodic disk pressure check loop. It blocks until ctx is
// cancelled.
func (dp DiskPressure) Run(ctx context.Context) {
	interval := dp.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if dp.ResumeBytes <= dp.MinFreeBytes {
		dp.ResumeBytes = dp.MinFreeBytes * 2
	}
	freeFn := dp.diskFreeFunc
	if freeFn == nil {
		freeFn = diskFreeBytes
	}

	low := false
	pausedByPressure := make(map[string]struct{})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			free, err := freeFn(dp.DataDir)
			if err != nil {
				dp.Logger.Warn("disk_pressure: failed to check disk space",
					slog.String("path", dp.DataDir),
					slog.String("error", err.Error()),
				)
				continue
			}

			if !low && free < dp.MinFreeBytes {
				dp.Logger.Warn("disk_pressure: low disk space, pausing active downloads",
					slog.String("free", humanize.IBytes(uint64(free))),
					slog.String("threshold", humanize.IBytes(uint64(dp.MinFreeBytes))),
				)
				dp.pauseActiveDownloads(pausedByPressure)
				low = true
			} else if low && free >= dp.ResumeBytes {
				dp.Logger.Info("disk_pressure: disk space recovered, resuming downloads",
					slog.String("free", humanize.IBytes(uint64(free))),
					slog.String("resumeThreshold", humanize.IBytes(uint64(dp.ResumeBytes))),
				)
				dp.resumePausedDownloads(ctx, pausedByPressure)
				low = false
			}
		}
	}
}

// pauseActiveDownloads pauses every job that is currently downloading or
// converting and records its id so it can be resumed later.
func (dp DiskPressure) pauseActiveDownloads(paused map[string]struct{}) {
	for jobID, p := range dp.Registry.SnapshotAll() {
		if p.Status != domain.StatusDownloading && p.Status != domain.StatusConverting {
			continue
		}
		if err := dp.Registry.Pause(jobID); err != nil {
			dp.Logger.Warn("disk_pressure: pause failed",
				slog.String("jobId", jobID),
				slog.String("error", err.Error()),
			)
		} else {
			paused[jobID] = struct{}{}
			dp.Logger.Info("disk_pressure: paused download",
				slog.String("jobId", jobID),
			)
		}
	}
}

// resumePausedDownloads restarts jobs that were paused by the pressure loop.
// Jobs the user paused stay paused.
func (dp DiskPressure) resumePausedDownloads(ctx context.Context, paused map[string]struct{}) {
	for jobID := range paused {
		if _, err := dp.Resume.Execute(ctx, jobID); err != nil {
			dp.Logger.Warn("disk_pressure: resume failed",
				slog.String("jobId", jobID),
				slog.String("error", err.Error()),
			)
		} else {
			dp.Logger.Info("disk_pressure: resumed download",
				slog.String("jobId", jobID),
			)
		}
		delete(paused, jobID)
	}
}
