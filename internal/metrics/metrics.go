package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediafetch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveDownloads = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediafetch",
		Name:      "active_downloads",
		Help:      "Number of downloads currently in a non-terminal state.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediafetch",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	DownloadsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_started_total",
		Help:      "Total number of download jobs registered.",
	})

	DownloadsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_completed_total",
		Help:      "Total number of download jobs that finished with an artifact.",
	})

	DownloadsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_failed_total",
		Help:      "Total number of download jobs that ended in failure.",
	})

	DownloadsCanceledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_canceled_total",
		Help:      "Total number of download jobs canceled by the user.",
	})

	DownloadsPausedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_paused_total",
		Help:      "Total number of pause operations.",
	})

	DownloadsResumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloads_resumed_total",
		Help:      "Total number of resume operations.",
	})

	DownloadedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "downloaded_bytes_total",
		Help:      "Total bytes reported downloaded across all jobs.",
	})

	ExtractorProcessesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "extractor_processes_total",
		Help:      "Total extractor subprocesses spawned, by kind.",
	}, []string{"kind"})

	ExtractorRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mediafetch",
		Name:      "extractor_run_duration_seconds",
		Help:      "Wall-clock duration of extractor download runs in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800},
	})

	SizeEstimatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "size_estimates_total",
		Help:      "Total pre-flight size estimation queries.",
	})

	MetadataProbesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediafetch",
		Name:      "metadata_probes_total",
		Help:      "Total metadata probe subprocess invocations.",
	})

	WSClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediafetch",
		Name:      "ws_clients_connected",
		Help:      "Number of websocket clients currently connected.",
	})

	DiskFreeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediafetch",
		Name:      "disk_free_bytes",
		Help:      "Free space on the download volume in bytes.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveDownloads,
		DownloadSpeedBytes,
		DownloadsStartedTotal,
		DownloadsCompletedTotal,
		DownloadsFailedTotal,
		DownloadsCanceledTotal,
		DownloadsPausedTotal,
		DownloadsResumedTotal,
		DownloadedBytesTotal,
		ExtractorProcessesTotal,
		ExtractorRunDuration,
		SizeEstimatesTotal,
		MetadataProbesTotal,
		WSClientsConnected,
		DiskFreeBytes,
	)
}
