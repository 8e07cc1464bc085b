package usecase

import (
	"context"
	"errors"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

var errNoHistory = errors.New("history repository not configured")

type ListHistory struct {
	Repo ports.HistoryRepository
}

func (uc ListHistory) Execute(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	if uc.Repo == nil {
		return nil, errNoHistory
	}
	entries, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return nil, wrapRepo(err)
	}
	return entries, nil
}

type GetHistoryEntry struct {
	Repo ports.HistoryRepository
}

func (uc GetHistoryEntry) Execute(ctx context.Context, jobID string) (domain.HistoryEntry, error) {
	if uc.Repo == nil {
		return domain.HistoryEntry{}, errNoHistory
	}
	entry, err := uc.Repo.Get(ctx, jobID)
	if err != nil {
		return domain.HistoryEntry{}, wrapRepo(err)
	}
	return entry, nil
}

type DeleteHistoryEntry struct {
	Repo ports.HistoryRepository
}

func (uc DeleteHistoryEntry) Execute(ctx context.Context, jobID string) error {
	if uc.Repo == nil {
		return errNoHistory
	}
	return wrapRepo(uc.Repo.Delete(ctx, jobID))
}

type ClearHistory struct {
	Repo ports.HistoryRepository
}

func (uc ClearHistory) Execute(ctx context.Context) error {
	if uc.Repo == nil {
		return errNoHistory
	}
	return wrapRepo(uc.Repo.Clear(ctx))
}
