package domain

import "errors"

var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions defines the adjacency list of allowed status transitions.
// Terminal statuses have no outgoing edges; cancellation is expressed as
// removal of the registry entry, so it is reachable from every live status.
var validTransitions = map[DownloadStatus][]DownloadStatus{
	StatusDownloading: {StatusConverting, StatusPaused, StatusCompleted, StatusFailed, StatusCanceled},
	StatusConverting:  {StatusDownloading, StatusPaused, StatusCompleted, StatusFailed, StatusCanceled},
	StatusPaused:      {StatusDownloading, StatusCanceled, StatusFailed},
	StatusCompleted:   {},
	StatusFailed:      {},
	StatusCanceled:    {},
}

// CanTransition reports whether moving a download from one status to another
// is valid.
func CanTransition(from, to DownloadStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
