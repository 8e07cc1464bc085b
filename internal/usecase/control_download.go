package usecase

import (
	"context"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

type PauseDownload struct {
	Registry ports.Registry
}

func (uc PauseDownload) Execute(ctx context.Context, jobID string) error {
	return uc.Registry.Pause(jobID)
}

type CancelDownload struct {
	Registry ports.Registry
}

func (uc CancelDownload) Execute(ctx context.Context, jobID string) error {
	return uc.Registry.Cancel(jobID)
}

// ResumeDownload re-invokes the download routine with the options stored at
// enqueue time. The registry keeps the accumulated byte counters, so the
// restarted subprocess continues the accounting where the pause left it.
type ResumeDownload struct {
	Registry ports.Registry
	Start    StartDownload
}

func (uc ResumeDownload) Execute(ctx context.Context, jobID string) (domain.JobProgress, error) {
	status, err := uc.Registry.Status(jobID)
	if err != nil {
		return domain.JobProgress{}, err
	}
	if status != domain.StatusPaused {
		return domain.JobProgress{}, domain.ErrInvalidTransition
	}

	opts, err := uc.Registry.Options(jobID)
	if err != nil {
		return domain.JobProgress{}, err
	}
	return uc.Start.Execute(ctx, opts)
}
