package progress

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/metrics"
)

// speedSampleWindow is the minimum interval between two speed samples.
// Reads inside the window reuse the previous speed and ETA.
const speedSampleWindow = 500 * time.Millisecond

type entry struct {
	opts     domain.JobOptions
	progress domain.JobProgress
	handle   ports.ProcessHandle

	isPaused   bool
	isResuming bool

	startTime              time.Time
	lastSampleTime         time.Time
	downloadedAtLastSample int64
}

// Registry is the in-memory bookkeeping service for active downloads. It is
// the single owner of mutable job state; the orchestrator and the HTTP
// layer only talk to it through short, lock-bounded operations. Subprocess
// kills happen after the lock is released.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*entry

	logger *slog.Logger

	// Now is swappable in tests.
	Now func() time.Time
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		jobs:   make(map[string]*entry),
		logger: logger,
	}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ---- Lifecycle --------------------------------------------------------------

// Register creates the bookkeeping entry for a job. When the entry already
// exists this is a resume: the status flips back to downloading and every
// counter keeps its value.
func (r *Registry) Register(jobID string, opts domain.JobOptions) (domain.JobProgress, bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.jobs[jobID]; ok {
		e.isResuming = true
		e.isPaused = false
		e.progress.Status = domain.StatusDownloading
		e.progress.Error = ""
		e.lastSampleTime = now
		e.downloadedAtLastSample = e.progress.DownloadedBytes
		metrics.DownloadsResumedTotal.Inc()
		r.logger.Info("download resumed", slog.String("jobId", jobID))
		return e.progress, true
	}

	stage := domain.StageVideo
	if opts.Mode == domain.ModeAudio {
		stage = domain.StageAudio
	}
	total := opts.EstimatedBytes
	if total < 0 {
		total = 0
	}

	e := &entry{
		opts: opts,
		progress: domain.JobProgress{
			TotalBytes: total,
			Status:     domain.StatusDownloading,
			Stage:      stage,
		},
		startTime:      now,
		lastSampleTime: now,
	}
	r.jobs[jobID] = e

	metrics.DownloadsStartedTotal.Inc()
	metrics.ActiveDownloads.Set(float64(r.activeLocked()))
	r.logger.Info("download registered",
		slog.String("jobId", jobID),
		slog.String("mode", string(opts.Mode)),
		slog.Int64("estimatedBytes", total),
	)
	return e.progress, false
}

// ---- Accounting setters -----------------------------------------------------

// SetStage moves a job to a new stage. The video to audio transition
// finalises the video counter before audio updates arrive; entering the
// merge stage pins the percentage at 99 until completion.
func (r *Registry) SetStage(jobID string, stage domain.DownloadStage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() {
		return
	}
	if e.progress.Stage == stage {
		return
	}

	if e.progress.Stage == domain.StageVideo && stage == domain.StageAudio {
		e.progress.VideoDownloadedBytes = e.progress.VideoTotalBytes
		recompute(&e.progress)
	}
	e.progress.Stage = stage
	if stage == domain.StageMerging {
		e.progress.Percentage = 99
	}
}

// SetStageTotalBytes writes the total for whichever stage the job is in.
func (r *Registry) SetStageTotalBytes(jobID string, total int64) {
	if total < 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() {
		return
	}
	switch e.progress.Stage {
	case domain.StageVideo:
		e.progress.VideoTotalBytes = total
	case domain.StageAudio:
		e.progress.AudioTotalBytes = total
	default:
		return
	}
	recompute(&e.progress)
}

// UpdateProgress writes the downloaded byte count for the current stage and
// refreshes the derived sums. Events arriving after the merge stage or a
// terminal status are dropped.
func (r *Registry) UpdateProgress(jobID string, stageDownloaded int64) {
	if stageDownloaded < 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() {
		return
	}

	before := e.progress.DownloadedBytes
	switch e.progress.Stage {
	case domain.StageVideo:
		if e.progress.VideoTotalBytes > 0 && stageDownloaded > e.progress.VideoTotalBytes {
			stageDownloaded = e.progress.VideoTotalBytes
		}
		e.progress.VideoDownloadedBytes = stageDownloaded
	case domain.StageAudio:
		if e.progress.AudioTotalBytes > 0 && stageDownloaded > e.progress.AudioTotalBytes {
			stageDownloaded = e.progress.AudioTotalBytes
		}
		e.progress.AudioDownloadedBytes = stageDownloaded
	default:
		return
	}
	recompute(&e.progress)

	if delta := e.progress.DownloadedBytes - before; delta > 0 {
		metrics.DownloadedBytesTotal.Add(float64(delta))
	}
}

// SetStatus applies a status change. Terminal statuses are absorbing.
func (r *Registry) SetStatus(jobID string, status domain.DownloadStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() {
		return
	}
	e.progress.Status = status
	e.isPaused = status == domain.StatusPaused
}

// Complete marks a job finished and stores its artifact. finalBytes, when
// known, overwrites both byte counters with the on-disk size. A completion
// racing a pause or cancel is dropped; killing the subprocess can surface
// as exit 0 and must not win over the control operation.
func (r *Registry) Complete(jobID string, finalBytes int64, result domain.DownloadResult) {
	r.mu.Lock()
	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() || e.isPaused {
		r.mu.Unlock()
		return
	}

	e.progress.Status = domain.StatusCompleted
	e.progress.Stage = domain.StageComplete
	e.progress.Percentage = 100
	if finalBytes > 0 {
		e.progress.TotalBytes = finalBytes
		e.progress.DownloadedBytes = finalBytes
	}
	res := result
	e.progress.Result = &res
	e.progress.Error = ""
	e.progress.Speed = 0
	e.progress.ETA = 0
	e.handle = nil
	active := r.activeLocked()
	r.mu.Unlock()

	metrics.DownloadsCompletedTotal.Inc()
	metrics.ActiveDownloads.Set(float64(active))
	r.logger.Info("download completed",
		slog.String("jobId", jobID),
		slog.String("file", result.FileName),
		slog.Int64("bytes", finalBytes),
	)
}

// Fail records a failure message. Terminal statuses are absorbing.
func (r *Registry) Fail(jobID string, msg string) {
	r.mu.Lock()
	e, ok := r.jobs[jobID]
	if !ok || e.progress.Status.IsTerminal() {
		r.mu.Unlock()
		return
	}

	e.progress.Status = domain.StatusFailed
	e.progress.Error = msg
	e.progress.Speed = 0
	e.progress.ETA = 0
	e.handle = nil
	active := r.activeLocked()
	r.mu.Unlock()

	metrics.DownloadsFailedTotal.Inc()
	metrics.ActiveDownloads.Set(float64(active))
	r.logger.Warn("download failed", slog.String("jobId", jobID), slog.String("error", msg))
}

// ---- Control operations -----------------------------------------------------

// Pause kills the running subprocess and freezes the entry in place. The
// kill runs after the registry lock is released.
func (r *Registry) Pause(jobID string) error {
	r.mu.Lock()
	e, ok := r.jobs[jobID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	if !domain.CanTransition(e.progress.Status, domain.StatusPaused) {
		r.mu.Unlock()
		return domain.ErrInvalidTransition
	}

	handle := e.handle
	e.handle = nil
	e.isPaused = true
	e.progress.Status = domain.StatusPaused
	e.progress.Speed = 0
	e.progress.ETA = 0
	r.mu.Unlock()

	if handle != nil {
		if err := handle.Kill(); err != nil {
			r.logger.Warn("pause kill failed", slog.String("jobId", jobID), slog.String("error", err.Error()))
		}
	}
	metrics.DownloadsPausedTotal.Inc()
	r.logger.Info("download paused", slog.String("jobId", jobID))
	return nil
}

// Cancel kills the running subprocess and removes the entry. A second
// cancel returns domain.ErrNotFound.
func (r *Registry) Cancel(jobID string) error {
	r.mu.Lock()
	e, ok := r.jobs[jobID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}

	handle := e.handle
	e.handle = nil
	delete(r.jobs, jobID)
	active := r.activeLocked()
	r.mu.Unlock()

	if handle != nil {
		if err := handle.Kill(); err != nil {
			r.logger.Warn("cancel kill failed", slog.String("jobId", jobID), slog.String("error", err.Error()))
		}
	}
	metrics.DownloadsCanceledTotal.Inc()
	metrics.ActiveDownloads.Set(float64(active))
	r.logger.Info("download canceled", slog.String("jobId", jobID))
	return nil
}

// AttachProcess swaps the subprocess handle for a job. Attaching to a
// missing job is a no-op; the caller is expected to re-check the status
// afterwards and kill the process itself if the job is gone.
func (r *Registry) AttachProcess(jobID string, h ports.ProcessHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.jobs[jobID]; ok {
		e.handle = h
	}
}

// ---- Reads ------------------------------------------------------------------

func (r *Registry) Options(jobID string) (domain.JobOptions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return domain.JobOptions{}, domain.ErrNotFound
	}
	return e.opts, nil
}

func (r *Registry) Status(jobID string) (domain.DownloadStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return e.progress.Status, nil
}

// Snapshot returns the outgoing view of one job, refreshing speed and ETA
// when the previous sample is older than the sampling window.
func (r *Registry) Snapshot(jobID string) (domain.JobProgress, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return domain.JobProgress{}, domain.ErrNotFound
	}
	r.sampleLocked(e, now)
	return viewOf(e), nil
}

// SnapshotAll returns the outgoing view of every registered job keyed by
// job id, and refreshes the aggregate speed gauge as a side effect.
func (r *Registry) SnapshotAll() map[string]domain.JobProgress {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]domain.JobProgress, len(r.jobs))
	var aggregate int64
	for id, e := range r.jobs {
		r.sampleLocked(e, now)
		view := viewOf(e)
		out[id] = view
		aggregate += view.Speed
	}
	metrics.DownloadSpeedBytes.Set(float64(aggregate))
	return out
}

// ActiveCount reports how many jobs are in a non-terminal state.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked()
}

// ---- Internals --------------------------------------------------------------

func (r *Registry) activeLocked() int {
	n := 0
	for _, e := range r.jobs {
		if !e.progress.Status.IsTerminal() {
			n++
		}
	}
	return n
}

func (r *Registry) sampleLocked(e *entry, now time.Time) {
	switch e.progress.Status {
	case domain.StatusDownloading, domain.StatusConverting:
	default:
		e.progress.Speed = 0
		e.progress.ETA = 0
		return
	}

	elapsed := now.Sub(e.lastSampleTime)
	if elapsed < speedSampleWindow {
		return
	}

	var speed int64
	if delta := e.progress.DownloadedBytes - e.downloadedAtLastSample; delta > 0 {
		speed = int64(float64(delta) / elapsed.Seconds())
	}
	if speed < 0 {
		speed = 0
	}
	e.progress.Speed = speed

	if speed > 0 && e.progress.TotalBytes > 0 {
		remaining := e.progress.TotalBytes - e.progress.DownloadedBytes
		if remaining < 0 {
			remaining = 0
		}
		e.progress.ETA = remaining / speed
	} else {
		e.progress.ETA = 0
	}

	e.lastSampleTime = now
	e.downloadedAtLastSample = e.progress.DownloadedBytes
}

// viewOf copies the stored progress and, for audio jobs with a format, maps
// the stored source-container sizes through the projection factor. Stored
// counters stay untouched; only the outgoing view is projected. Terminal
// entries already carry the real on-disk size and pass through as-is.
func viewOf(e *entry) domain.JobProgress {
	view := e.progress
	if e.progress.Result != nil {
		res := *e.progress.Result
		view.Result = &res
	}

	if e.opts.Mode != domain.ModeAudio || e.opts.Format == "" || view.Status.IsTerminal() {
		return view
	}
	factor := domain.ProjectionFactor(e.opts.Format)
	if factor == 1.0 {
		return view
	}

	view.TotalBytes = int64(math.Round(float64(view.TotalBytes) * factor))
	view.AudioTotalBytes = int64(math.Round(float64(view.AudioTotalBytes) * factor))
	if view.TotalBytes > 0 {
		view.Percentage = clampPercent(100 * float64(view.DownloadedBytes) / float64(view.TotalBytes))
	}
	return view
}

func recompute(p *domain.JobProgress) {
	p.DownloadedBytes = p.VideoDownloadedBytes + p.AudioDownloadedBytes
	if p.VideoTotalBytes > 0 && p.AudioTotalBytes > 0 {
		p.TotalBytes = p.VideoTotalBytes + p.AudioTotalBytes
	} else if p.TotalBytes == 0 {
		p.TotalBytes = p.VideoTotalBytes + p.AudioTotalBytes
	}
	if p.TotalBytes > 0 && p.Stage != domain.StageMerging {
		p.Percentage = clampPercent(100 * float64(p.DownloadedBytes) / float64(p.TotalBytes))
	}
}

func clampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

var _ ports.Registry = (*Registry)(nil)
