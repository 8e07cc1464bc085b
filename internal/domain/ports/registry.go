package ports

import "mediafetch/internal/domain"

// ProcessHandle is the control surface of a running extractor subprocess.
// Kill must be safe to call concurrently with the process exiting.
type ProcessHandle interface {
	Kill() error
}

// Registry is the process-wide bookkeeping service for active downloads.
// All methods are safe for concurrent use; none of them blocks on
// subprocess or filesystem I/O.
type Registry interface {
	// Register creates the entry for a job. When the entry already exists
	// it flips the status back to downloading without resetting any
	// counters. The second return reports whether this was a resume.
	Register(jobID string, opts domain.JobOptions) (domain.JobProgress, bool)

	SetStage(jobID string, stage domain.DownloadStage)
	SetStageTotalBytes(jobID string, total int64)
	UpdateProgress(jobID string, stageDownloaded int64)
	SetStatus(jobID string, status domain.DownloadStatus)

	Complete(jobID string, finalBytes int64, result domain.DownloadResult)
	Fail(jobID string, msg string)

	// Pause kills the attached subprocess (outside the registry lock),
	// clears the handle and leaves the entry with status paused.
	Pause(jobID string) error
	// Cancel kills the attached subprocess and removes the entry. A second
	// cancel reports domain.ErrNotFound.
	Cancel(jobID string) error

	// AttachProcess swaps the subprocess handle for a job. A nil handle
	// detaches. Attaching to a missing job is a no-op.
	AttachProcess(jobID string, h ProcessHandle)

	// Options returns the immutable inputs stored at registration.
	Options(jobID string) (domain.JobOptions, error)
	Status(jobID string) (domain.DownloadStatus, error)

	// Snapshot returns the outgoing view of one job: lazily sampled
	// speed/ETA and, for audio jobs, projected sizes.
	Snapshot(jobID string) (domain.JobProgress, error)
	SnapshotAll() map[string]domain.JobProgress
}
