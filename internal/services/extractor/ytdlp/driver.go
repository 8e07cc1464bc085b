package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/metrics"
)

// maxProbeTimeout bounds metadata and version probes when the caller's
// context carries no deadline.
const maxProbeTimeout = 30 * time.Second

// maxEstimateTimeout bounds size probes. Playlist probes fetch one JSON
// record per entry, so they get a much wider window than metadata probes.
const maxEstimateTimeout = 5 * time.Minute

// Driver shells out to the extractor binary. Concurrent metadata probes
// for the same URL are collapsed into one subprocess.
type Driver struct {
	binary      string
	cookiesFile string
	logger      *slog.Logger

	probes singleflight.Group

	versionMu sync.Mutex
	version   string
}

var _ ports.Extractor = (*Driver)(nil)

// New returns a Driver for the given binary path. An empty path falls back
// to looking up "yt-dlp" on PATH.
func New(binary string, logger *slog.Logger) *Driver {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		binary:      bin,
		cookiesFile: CookiesFile,
		logger:      logger,
	}
}

// Start spawns one download subprocess and wires its stdout into sink. The
// returned process is already running; the caller owns its lifecycle.
func (d *Driver) Start(ctx context.Context, opts domain.JobOptions, outputDir string, sink ports.ProgressSink) (ports.Process, error) {
	args := BuildDownloadArgs(opts, outputDir, d.cookiesPath())
	proc := newProcess(ctx, d.binary, args)

	logger := d.logger.With(slog.String("jobId", opts.JobID))
	parser := &outputParser{mode: opts.Mode, sink: sink, logger: logger}

	err := proc.start(
		func(r *os.File) {
			defer r.Close()
			parser.consume(r)
		},
		func(r *os.File) {
			defer r.Close()
			logStderr(r, logger)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", d.binary, err)
	}

	metrics.ExtractorProcessesTotal.WithLabelValues("download").Inc()
	logger.Info("extractor started",
		slog.String("mode", string(opts.Mode)),
		slog.String("quality", opts.Quality),
		slog.String("format", opts.Format))
	return proc, nil
}

// Probe fetches platform metadata for a URL without downloading anything.
func (d *Driver) Probe(ctx context.Context, url string) (domain.VideoMetadata, error) {
	u := strings.TrimSpace(url)
	if u == "" {
		return domain.VideoMetadata{}, errors.New("url is required")
	}

	v, err, _ := d.probes.Do(u, func() (any, error) {
		return d.runProbe(ctx, u)
	})
	if err != nil {
		return domain.VideoMetadata{}, err
	}
	return v.(domain.VideoMetadata), nil
}

func (d *Driver) runProbe(ctx context.Context, url string) (domain.VideoMetadata, error) {
	args := []string{
		"--dump-single-json",
		"--flat-playlist",
		"--no-warnings",
	}
	if c := d.cookiesPath(); c != "" {
		args = append(args, "--cookies", c)
	}
	args = append(args, url)

	stdout, stderrMsg, runErr := d.run(ctx, args, maxProbeTimeout, "probe")

	meta, parseErr := parseProbeOutput(stdout)
	if parseErr != nil {
		if runErr != nil {
			if stderrMsg == "" {
				return domain.VideoMetadata{}, fmt.Errorf("%s failed: %w", d.binary, runErr)
			}
			return domain.VideoMetadata{}, fmt.Errorf("%s failed: %w: %s", d.binary, runErr, stderrMsg)
		}
		return domain.VideoMetadata{}, fmt.Errorf("%s output parse failed: %w", d.binary, parseErr)
	}

	metrics.MetadataProbesTotal.Inc()
	return meta, nil
}

// EstimateSize sums the per-video byte counts an extractor dry run reports.
// The returned value is the raw source size; format projection is the
// caller's concern.
func (d *Driver) EstimateSize(ctx context.Context, req ports.SizeRequest) (int64, error) {
	if strings.TrimSpace(req.URL) == "" {
		return 0, errors.New("url is required")
	}
	if err := ValidatePlaylistItems(req.PlaylistItems); err != nil {
		return 0, err
	}

	args := BuildEstimateArgs(req, d.cookiesPath())
	stdout, stderrMsg, runErr := d.run(ctx, args, maxEstimateTimeout, "estimate")

	// With --ignore-errors a playlist probe can exit non-zero and still
	// report most entries. Only a run with no usable records fails.
	total, parsed := sumReportedSizes(stdout)
	if runErr != nil && parsed == 0 {
		if stderrMsg == "" {
			return 0, fmt.Errorf("%s failed: %w", d.binary, runErr)
		}
		return 0, fmt.Errorf("%s failed: %w: %s", d.binary, runErr, stderrMsg)
	}

	metrics.SizeEstimatesTotal.Inc()
	return total, nil
}

// Version reports the extractor binary version. The value is cached after
// the first successful probe.
func (d *Driver) Version(ctx context.Context) (string, error) {
	d.versionMu.Lock()
	defer d.versionMu.Unlock()
	if d.version != "" {
		return d.version, nil
	}

	stdout, stderrMsg, runErr := d.run(ctx, []string{"--version"}, maxProbeTimeout, "version")
	if runErr != nil {
		if stderrMsg == "" {
			return "", fmt.Errorf("%s --version: %w", d.binary, runErr)
		}
		return "", fmt.Errorf("%s --version: %w: %s", d.binary, runErr, stderrMsg)
	}

	v := strings.TrimSpace(string(stdout))
	if v == "" {
		return "", fmt.Errorf("%s --version: empty output", d.binary)
	}
	d.version = v
	return v, nil
}

// run executes one short-lived extractor invocation with buffered output.
func (d *Driver) run(ctx context.Context, args []string, timeout time.Duration, kind string) (stdout []byte, stderrMsg string, runErr error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, d.binary, args...)

	var out bytes.Buffer
	var errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	started := time.Now()
	runErr = cmd.Run()
	metrics.ExtractorProcessesTotal.WithLabelValues(kind).Inc()
	metrics.ExtractorRunDuration.Observe(time.Since(started).Seconds())

	return out.Bytes(), strings.TrimSpace(errBuf.String()), runErr
}

func (d *Driver) cookiesPath() string {
	if d.cookiesFile == "" {
		return ""
	}
	if _, err := os.Stat(d.cookiesFile); err != nil {
		return ""
	}
	return d.cookiesFile
}

// logStderr drains the subprocess stderr stream. Warnings and errors are
// logged but never drive job state.
func logStderr(r io.Reader, logger *slog.Logger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		logger.Debug("extractor stderr", slog.String("line", line))
	}
}

// probePayload is the subset of the extractor's JSON output we parse.
type probePayload struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Channel    string       `json:"channel"`
	Uploader   string       `json:"uploader"`
	Duration   float64      `json:"duration"`
	Thumbnail  string       `json:"thumbnail"`
	WebpageURL string       `json:"webpage_url"`
	Type       string       `json:"_type"`
	Entries    []probeEntry `json:"entries"`
}

type probeEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

func parseProbeOutput(data []byte) (domain.VideoMetadata, error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.VideoMetadata{}, err
	}

	meta := domain.VideoMetadata{
		VideoID:    payload.ID,
		Title:      payload.Title,
		Channel:    payload.Channel,
		Uploader:   payload.Uploader,
		Duration:   payload.Duration,
		Thumbnail:  payload.Thumbnail,
		WebpageURL: payload.WebpageURL,
		IsPlaylist: payload.Type == "playlist",
	}
	if meta.Channel == "" {
		meta.Channel = payload.Uploader
	}
	if meta.IsPlaylist {
		meta.Entries = make([]domain.PlaylistEntry, 0, len(payload.Entries))
		for i, e := range payload.Entries {
			meta.Entries = append(meta.Entries, domain.PlaylistEntry{
				Index:    i + 1,
				VideoID:  e.ID,
				Title:    e.Title,
				Duration: e.Duration,
			})
		}
	}
	return meta, nil
}

// sizeRecord is one line of the NDJSON a size probe emits.
type sizeRecord struct {
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

// sumReportedSizes adds filesize, or filesize_approx when filesize is
// absent, across every NDJSON record. Unparseable lines contribute zero.
func sumReportedSizes(out []byte) (total int64, parsed int) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec sizeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		parsed++
		switch {
		case rec.Filesize > 0:
			total += int64(rec.Filesize)
		case rec.FilesizeApprox > 0:
			total += int64(rec.FilesizeApprox)
		}
	}
	return total, parsed
}
