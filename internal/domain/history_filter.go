package domain

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// HistoryFilter narrows and orders history listings. The zero value means
// "everything, newest first, repository default limit".
type HistoryFilter struct {
	Status    *DownloadStatus `json:"status,omitempty"`
	Search    string          `json:"search,omitempty"`
	SortOrder SortOrder       `json:"sortOrder,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}
