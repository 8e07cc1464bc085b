package usecase

import (
	"context"
	"errors"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

type GetProgress struct {
	Registry ports.Registry
}

func (uc GetProgress) Execute(ctx context.Context, jobID string) (domain.JobProgress, error) {
	if uc.Registry == nil {
		return domain.JobProgress{}, errors.New("registry not configured")
	}
	return uc.Registry.Snapshot(jobID)
}

type ListDownloads struct {
	Registry ports.Registry
}

func (uc ListDownloads) Execute(ctx context.Context) (map[string]domain.JobProgress, error) {
	if uc.Registry == nil {
		return nil, errors.New("registry not configured")
	}
	return uc.Registry.SnapshotAll(), nil
}
