package domain

// DownloadStage describes which phase of work the extractor is performing
// for an active download.
type DownloadStage string

const (
	StageVideo    DownloadStage = "video"
	StageAudio    DownloadStage = "audio"
	StageMerging  DownloadStage = "merging"
	StageComplete DownloadStage = "complete"
)
