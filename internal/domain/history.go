package domain

import (
	"errors"
	"time"
)

// HistoryEntry is the persisted record of a finished download. Entries are
// written once a job reaches a terminal status and are never mutated.
type HistoryEntry struct {
	JobID      string         `json:"jobId"`
	URL        string         `json:"url"`
	Title      string         `json:"title,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Mode       DownloadMode   `json:"mode"`
	Quality    string         `json:"quality,omitempty"`
	Format     string         `json:"format,omitempty"`
	Status     DownloadStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	FilePath   string         `json:"filePath,omitempty"`
	FileName   string         `json:"fileName,omitempty"`
	FileSize   string         `json:"fileSize,omitempty"`
	TotalBytes int64          `json:"totalBytes"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Validate checks domain invariants for HistoryEntry.
func (e HistoryEntry) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if !e.Status.IsTerminal() {
		return errors.New("history entries require a terminal status")
	}
	if e.TotalBytes < 0 {
		return errors.New("totalBytes must not be negative")
	}
	return nil
}
