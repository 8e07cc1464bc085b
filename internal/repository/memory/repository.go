package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mediafetch/internal/domain"
)

// defaultListLimit caps unbounded history listings, matching the Mongo
// repository.
const defaultListLimit = 100

// Repository keeps download history in process memory. It backs the
// history API when no MongoDB is configured; entries do not survive a
// restart.
type Repository struct {
	mu      sync.RWMutex
	entries map[string]domain.HistoryEntry
}

func NewRepository() *Repository {
	return &Repository{entries: make(map[string]domain.HistoryEntry)}
}

// Append stores the outcome of a finished job. A repeated job id
// replaces the previous record, mirroring the Mongo upsert.
func (r *Repository) Append(_ context.Context, e domain.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[e.JobID] = e
	r.mu.Unlock()
	return nil
}

func (r *Repository) Get(_ context.Context, jobID string) (domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[jobID]
	if !ok {
		return domain.HistoryEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

func (r *Repository) List(_ context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	r.mu.RLock()
	matched := make([]domain.HistoryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if filter.Status != nil && entry.Status != *filter.Status {
			continue
		}
		if search != "" && !matchesSearch(entry, search) {
			continue
		}
		matched = append(matched, entry)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.FinishedAt.Equal(b.FinishedAt) {
			if filter.SortOrder == domain.SortAsc {
				return a.FinishedAt.Before(b.FinishedAt)
			}
			return b.FinishedAt.Before(a.FinishedAt)
		}
		return a.JobID < b.JobID
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.HistoryEntry{}, nil
	}
	matched = matched[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *Repository) Delete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[jobID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, jobID)
	return nil
}

func (r *Repository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.entries = make(map[string]domain.HistoryEntry)
	r.mu.Unlock()
	return nil
}

func matchesSearch(e domain.HistoryEntry, search string) bool {
	return strings.Contains(strings.ToLower(e.Title), search) ||
		strings.Contains(strings.ToLower(e.Channel), search)
}
