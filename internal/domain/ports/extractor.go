package ports

import (
	"context"

	"mediafetch/internal/domain"
)

// Process is a running extractor subprocess.
type Process interface {
	ProcessHandle
	// Wait blocks until the process exits and returns the error from the
	// underlying wait call, if any.
	Wait() error
	// ExitCode is valid once Wait has returned; -1 when the process was
	// killed before reporting a code.
	ExitCode() int
	Done() <-chan struct{}
}

// ProgressSink receives parsed extractor output events for one job.
// Implementations must be cheap: the stdout reader calls them inline.
type ProgressSink interface {
	StageChanged(stage domain.DownloadStage)
	Converting()
	StageTotal(total int64)
	Progress(stageDownloaded int64)
}

// SizeRequest describes a pre-flight size estimation query.
type SizeRequest struct {
	URL           string
	Mode          domain.DownloadMode
	Quality       string
	Format        string
	PlaylistItems string
}

// Extractor drives the external command-line extractor.
type Extractor interface {
	// Start spawns one download subprocess writing temp artifacts named
	// "<jobID>.temp.<ext>" under outputDir, streaming parsed events into
	// sink. The returned Process is already running.
	Start(ctx context.Context, opts domain.JobOptions, outputDir string, sink ProgressSink) (Process, error)

	// Probe fetches platform metadata for a URL without downloading.
	Probe(ctx context.Context, url string) (domain.VideoMetadata, error)

	// EstimateSize returns the projected total size in bytes, or 0 when the
	// extractor output could not be parsed.
	EstimateSize(ctx context.Context, req SizeRequest) (int64, error)

	// Version reports the extractor binary version.
	Version(ctx context.Context) (string, error)
}
