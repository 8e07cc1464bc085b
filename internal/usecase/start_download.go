package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/naming"
)

// StartDownload enqueues a download job and supervises its extractor
// subprocess in the background. Execute performs only the synchronous steps;
// everything that happens after the subprocess starts is reported through
// the registry, never through the Execute return value.
type StartDownload struct {
	Registry  ports.Registry
	Extractor ports.Extractor
	History   ports.HistoryRepository // optional
	Logger    *slog.Logger
	// MinFreeBytes rejects new jobs when the output volume has less than
	// this plus the job's estimated size available. Zero disables the guard.
	MinFreeBytes int64
	Now          func() time.Time
}

func (uc StartDownload) Execute(ctx context.Context, opts domain.JobOptions) (domain.JobProgress, error) {
	if err := opts.Validate(); err != nil {
		return domain.JobProgress{}, err
	}

	// A job id can only be re-registered from paused. Anything else is a
	// duplicate enqueue or an attempt to restart a finished job.
	resuming := false
	if status, err := uc.Registry.Status(opts.JobID); err == nil {
		if status != domain.StatusPaused {
			return domain.JobProgress{}, domain.ErrInvalidTransition
		}
		resuming = true
	}

	// Pre-flight size estimate, best effort. The registry stores the raw
	// source size and applies the audio projection on read, so the raw
	// driver answer goes in here, not the projected one.
	if !resuming && opts.EstimatedBytes == 0 {
		if n, err := uc.Extractor.EstimateSize(ctx, ports.SizeRequest{
			URL:     opts.URL,
			Mode:    opts.Mode,
			Quality: opts.Quality,
			Format:  opts.Format,
		}); err == nil && n > 0 {
			opts.EstimatedBytes = n
		}
	}

	dir, err := uc.prepareOutputDir(opts)
	if err != nil {
		return domain.JobProgress{}, err
	}

	progress, resumed := uc.Registry.Register(opts.JobID, opts)
	logger := uc.logger().With(slog.String("jobId", opts.JobID))
	if resumed {
		logger.Info("download resumed", slog.String("url", opts.URL))
	} else {
		logger.Info("download queued",
			slog.String("url", opts.URL),
			slog.String("mode", string(opts.Mode)),
			slog.String("folder", dir),
		)
	}

	// The subprocess must outlive the request that enqueued it.
	go uc.run(context.WithoutCancel(ctx), opts, dir)

	return progress, nil
}

// prepareOutputDir resolves the effective output folder, creates it and
// applies the free-space guard.
func (uc StartDownload) prepareOutputDir(opts domain.JobOptions) (string, error) {
	dir := opts.OutputDir
	if opts.PerChannelFolder && strings.TrimSpace(opts.Channel) != "" {
		dir = filepath.Join(dir, naming.Sanitize(opts.Channel))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output folder: %w", err)
	}

	if uc.MinFreeBytes > 0 {
		free, err := diskFreeBytes(dir)
		if err == nil && free < uc.MinFreeBytes+opts.EstimatedBytes {
			uc.logger().Warn("refusing download, disk space low",
				slog.String("folder", dir),
				slog.String("free", humanize.IBytes(uint64(free))),
				slog.String("required", humanize.IBytes(uint64(uc.MinFreeBytes+opts.EstimatedBytes))),
			)
			return "", domain.ErrLowDiskSpace
		}
	}
	return dir, nil
}

// run supervises one subprocess from spawn to terminal status. It never
// returns an error; every outcome lands in the registry.
func (uc StartDownload) run(ctx context.Context, opts domain.JobOptions, dir string) {
	logger := uc.logger().With(slog.String("jobId", opts.JobID))
	startedAt := uc.nowFunc()()

	proc, err := uc.Extractor.Start(ctx, opts, dir, registrySink{registry: uc.Registry, jobID: opts.JobID})
	if err != nil {
		logger.Error("extractor spawn failed", slog.String("error", err.Error()))
		uc.Registry.Fail(opts.JobID, err.Error())
		uc.recordOutcome(ctx, opts, startedAt)
		return
	}

	uc.Registry.AttachProcess(opts.JobID, proc)

	// A pause or cancel issued between register and attach had no handle to
	// kill; honor it now.
	if status, err := uc.Registry.Status(opts.JobID); err != nil || status == domain.StatusPaused {
		_ = proc.Kill()
	}

	// The exited handle stays attached; detaching it here would race with a
	// resume attaching its replacement.
	waitErr := proc.Wait()
	uc.finish(ctx, opts, dir, proc.ExitCode(), waitErr, startedAt, logger)
}

// finish translates the subprocess exit into a terminal status. The registry
// status is read first: an exit forced by pause or cancel must not be
// mistaken for an outcome, whatever the exit code says.
func (uc StartDownload) finish(ctx context.Context, opts domain.JobOptions, dir string, exitCode int, waitErr error, startedAt time.Time, logger *slog.Logger) {
	status, err := uc.Registry.Status(opts.JobID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("download canceled")
		uc.recordCanceled(ctx, opts, startedAt)
		return
	}
	if err != nil {
		return
	}
	if status == domain.StatusPaused {
		logger.Info("download paused, temp files kept", slog.String("folder", dir))
		return
	}

	if exitCode == 0 {
		uc.finalize(ctx, opts, dir, startedAt, logger)
		return
	}

	if waitErr != nil {
		logger.Warn("extractor exited",
			slog.Int("code", exitCode),
			slog.String("error", waitErr.Error()),
		)
	}
	uc.Registry.Fail(opts.JobID, fmt.Sprintf("Download interrupted (code %d)", exitCode))
	uc.recordOutcome(ctx, opts, startedAt)
}

// finalize renames the temp artifact to its final name and completes the
// job.
func (uc StartDownload) finalize(ctx context.Context, opts domain.JobOptions, dir string, startedAt time.Time, logger *slog.Logger) {
	src, ok := findArtifact(dir, opts.JobID)
	if !ok {
		uc.Registry.Fail(opts.JobID, "No complete file found")
		uc.recordOutcome(ctx, opts, startedAt)
		return
	}

	ext := filepath.Ext(src)
	base := opts.ResolvedName
	if base == "" {
		base = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(src), ext), ".temp")
		base = naming.Sanitize(base)
	}

	final, err := naming.RenameUnique(src, filepath.Join(dir, base+ext))
	if err != nil {
		uc.Registry.Fail(opts.JobID, err.Error())
		uc.recordOutcome(ctx, opts, startedAt)
		return
	}

	info, err := os.Stat(final)
	if err != nil {
		uc.Registry.Fail(opts.JobID, err.Error())
		uc.recordOutcome(ctx, opts, startedAt)
		return
	}

	result := domain.DownloadResult{
		FilePath: final,
		FileName: filepath.Base(final),
		FileSize: formatFileSize(info.Size()),
	}
	uc.Registry.Complete(opts.JobID, info.Size(), result)
	logger.Info("download completed",
		slog.String("file", result.FileName),
		slog.String("size", result.FileSize),
	)
	uc.recordOutcome(ctx, opts, startedAt)
}

// recordOutcome persists the terminal snapshot to history. Best effort; a
// failed append is logged, never surfaced.
func (uc StartDownload) recordOutcome(ctx context.Context, opts domain.JobOptions, startedAt time.Time) {
	if uc.History == nil {
		return
	}
	snap, err := uc.Registry.Snapshot(opts.JobID)
	if err != nil || !snap.Status.IsTerminal() {
		return
	}
	entry := uc.historyEntry(opts, snap.Status, startedAt)
	entry.Error = snap.Error
	entry.TotalBytes = snap.TotalBytes
	if snap.Result != nil {
		entry.FilePath = snap.Result.FilePath
		entry.FileName = snap.Result.FileName
		entry.FileSize = snap.Result.FileSize
	}
	uc.appendHistory(ctx, entry)
}

// recordCanceled synthesizes the history entry for a job whose registry
// entry is already gone.
func (uc StartDownload) recordCanceled(ctx context.Context, opts domain.JobOptions, startedAt time.Time) {
	if uc.History == nil {
		return
	}
	uc.appendHistory(ctx, uc.historyEntry(opts, domain.StatusCanceled, startedAt))
}

func (uc StartDownload) historyEntry(opts domain.JobOptions, status domain.DownloadStatus, startedAt time.Time) domain.HistoryEntry {
	return domain.HistoryEntry{
		JobID:      opts.JobID,
		URL:        opts.URL,
		Title:      opts.Title,
		Channel:    opts.Channel,
		Mode:       opts.Mode,
		Quality:    opts.Quality,
		Format:     opts.Format,
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: uc.nowFunc()(),
	}
}

func (uc StartDownload) appendHistory(ctx context.Context, entry domain.HistoryEntry) {
	if err := uc.History.Append(ctx, entry); err != nil {
		uc.logger().Warn("history append failed",
			slog.String("jobId", entry.JobID),
			slog.String("error", err.Error()),
		)
	}
}

func (uc StartDownload) nowFunc() func() time.Time {
	if uc.Now != nil {
		return uc.Now
	}
	return time.Now
}

func (uc StartDownload) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}

// registrySink forwards parsed extractor output into the registry for one
// job.
type registrySink struct {
	registry ports.Registry
	jobID    string
}

var _ ports.ProgressSink = registrySink{}

func (s registrySink) StageChanged(stage domain.DownloadStage) {
	s.registry.SetStage(s.jobID, stage)
}

func (s registrySink) Converting() {
	s.registry.SetStatus(s.jobID, domain.StatusConverting)
}

func (s registrySink) StageTotal(total int64) {
	s.registry.SetStageTotalBytes(s.jobID, total)
}

func (s registrySink) Progress(stageDownloaded int64) {
	s.registry.UpdateProgress(s.jobID, stageDownloaded)
}

// findArtifact locates the file the extractor produced for jobID: the
// newest "<jobID>.temp*" file, else the newest file in the folder. Partial
// ".part" downloads never qualify.
func findArtifact(dir, jobID string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	prefix := jobID + ".temp"
	var tempName, anyName string
	var tempMod, anyMod time.Time

	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			if tempName == "" || info.ModTime().After(tempMod) {
				tempName, tempMod = e.Name(), info.ModTime()
			}
			continue
		}
		if anyName == "" || info.ModTime().After(anyMod) {
			anyName, anyMod = e.Name(), info.ModTime()
		}
	}

	if tempName != "" {
		return filepath.Join(dir, tempName), true
	}
	if anyName != "" {
		return filepath.Join(dir, anyName), true
	}
	return "", false
}

// formatFileSize renders the byte count the way the API reports it, with
// two decimals in binary megabytes.
func formatFileSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
