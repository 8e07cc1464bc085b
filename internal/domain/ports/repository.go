package ports

import (
	"context"

	"mediafetch/internal/domain"
)

type HistoryRepository interface {
	Append(ctx context.Context, e domain.HistoryEntry) error
	Get(ctx context.Context, jobID string) (domain.HistoryEntry, error)
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
	Delete(ctx context.Context, jobID string) error
	Clear(ctx context.Context) error
}
