package domain

// PlaylistEntry is one item of a playlist as reported by the extractor.
type PlaylistEntry struct {
	Index    int     `json:"index"`
	VideoID  string  `json:"videoId"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration,omitempty"`
}

// VideoMetadata is the platform metadata returned by a probe of a single
// video or playlist URL.
type VideoMetadata struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Channel    string          `json:"channel,omitempty"`
	Uploader   string          `json:"uploader,omitempty"`
	Duration   float64         `json:"duration,omitempty"`
	Thumbnail  string          `json:"thumbnail,omitempty"`
	WebpageURL string          `json:"webpageUrl,omitempty"`
	IsPlaylist bool            `json:"isPlaylist"`
	Entries    []PlaylistEntry `json:"entries,omitempty"`
}
