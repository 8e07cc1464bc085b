package domain

import "time"

// ServiceHealth is the point-in-time view served by the health endpoint and
// pushed over the WebSocket channel.
type ServiceHealth struct {
	Status           string    `json:"status"`
	Version          string    `json:"version"`
	ExtractorVersion string    `json:"extractorVersion,omitempty"`
	ActiveDownloads  int       `json:"activeDownloads"`
	DiskFreeBytes    int64     `json:"diskFreeBytes,omitempty"`
	DiskFree         string    `json:"diskFree,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
