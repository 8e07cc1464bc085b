package domain

import "errors"

type DownloadMode string

const (
	ModeVideo DownloadMode = "video"
	ModeAudio DownloadMode = "audio"
)

type ContentType string

const (
	ContentSingle   ContentType = "single"
	ContentPlaylist ContentType = "playlist"
)

// JobOptions is the immutable input for one download job. Everything the
// orchestrator needs to run, pause and re-run the extractor lives here.
type JobOptions struct {
	URL              string       `json:"url"`
	VideoID          string       `json:"videoId"`
	JobID            string       `json:"jobId"`
	OutputDir        string       `json:"outputFolder"`
	Mode             DownloadMode `json:"mode"`
	Quality          string       `json:"quality,omitempty"`
	Format           string       `json:"format,omitempty"`
	Title            string       `json:"title,omitempty"`
	Channel          string       `json:"channel,omitempty"`
	PlaylistIndex    int          `json:"index,omitempty"`
	ContentType      ContentType  `json:"contentType,omitempty"`
	PerChannelFolder bool         `json:"createPerChannelFolder,omitempty"`
	DownloadSubs     bool         `json:"downloadSubtitles,omitempty"`
	SubtitleLanguage string       `json:"subtitleLanguage,omitempty"`
	EstimatedBytes   int64        `json:"-"`
	ResolvedName     string       `json:"-"`
}

// Validate checks domain invariants for JobOptions.
func (o JobOptions) Validate() error {
	if o.JobID == "" {
		return errors.New("job id is required")
	}
	if o.URL == "" {
		return errors.New("url is required")
	}
	if o.OutputDir == "" {
		return errors.New("output folder is required")
	}
	switch o.Mode {
	case ModeVideo, ModeAudio:
		// valid
	case "":
		return errors.New("mode is required")
	default:
		return errors.New("invalid mode: " + string(o.Mode))
	}
	if o.Mode == ModeAudio && o.Format != "" {
		switch o.Format {
		case "mp3", "m4a", "wav", "opus":
			// valid
		default:
			return errors.New("invalid audio format: " + o.Format)
		}
	}
	if o.EstimatedBytes < 0 {
		return errors.New("estimatedBytes must not be negative")
	}
	return nil
}

// DownloadResult describes the artifact produced by a completed job.
type DownloadResult struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	FileSize string `json:"fileSize"`
}

// JobProgress is the mutable per-job accounting state and doubles as the
// API wire representation of one download.
type JobProgress struct {
	TotalBytes      int64          `json:"totalBytes"`
	DownloadedBytes int64          `json:"downloadedBytes"`
	Percentage      float64        `json:"percentage"`
	Speed           int64          `json:"speed"`
	ETA             int64          `json:"eta"`
	Status          DownloadStatus `json:"status"`
	Stage           DownloadStage  `json:"stage"`

	VideoTotalBytes      int64 `json:"videoTotalBytes"`
	AudioTotalBytes      int64 `json:"audioTotalBytes"`
	VideoDownloadedBytes int64 `json:"videoDownloadedBytes"`
	AudioDownloadedBytes int64 `json:"audioDownloadedBytes"`

	Error  string          `json:"error,omitempty"`
	Result *DownloadResult `json:"result,omitempty"`
}

// Validate checks accounting invariants for JobProgress.
func (p JobProgress) Validate() error {
	if p.TotalBytes < 0 || p.DownloadedBytes < 0 {
		return errors.New("byte counters must not be negative")
	}
	if p.VideoTotalBytes > 0 && p.VideoDownloadedBytes > p.VideoTotalBytes {
		return errors.New("videoDownloadedBytes must not exceed videoTotalBytes")
	}
	if p.AudioTotalBytes > 0 && p.AudioDownloadedBytes > p.AudioTotalBytes {
		return errors.New("audioDownloadedBytes must not exceed audioTotalBytes")
	}
	if p.Percentage < 0 || p.Percentage > 100 {
		return errors.New("percentage must be within [0, 100]")
	}
	switch p.Status {
	case StatusDownloading, StatusPaused, StatusConverting, StatusCompleted, StatusFailed, StatusCanceled:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(p.Status))
	}
	return nil
}

// ProjectionFactor converts the extractor's source-container byte count into
// an estimate of the post-transcode size for an audio format. Unknown
// formats project 1:1.
func ProjectionFactor(format string) float64 {
	switch format {
	case "mp3":
		return 1.67
	case "m4a":
		return 2.67
	case "wav":
		return 12.85
	case "opus":
		return 1.0
	default:
		return 1.0
	}
}
