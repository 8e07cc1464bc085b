package ytdlp

import (
	"bufio"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

// maxLineBytes bounds a single scanned line. Size probe records carry the
// full format list of a video and can run to several megabytes.
const maxLineBytes = 10 << 20

// outputParser turns the extractor's stdout line stream into sink events
// for one job.
type outputParser struct {
	mode   domain.DownloadMode
	sink   ports.ProgressSink
	logger *slog.Logger
}

// convertingMarkers are post-processor lines. Any of them flips the job
// status to converting without changing the stage.
var convertingMarkers = []string{
	"[ExtractAudio]",
	"[FixupM4a]",
	"[ffmpeg]",
	"[Metadata]",
	"[EmbedSubtitle]",
	"[Thumbnails]",
	"Deleting original file",
}

// progressPattern matches download progress lines such as
//
//	[download]  42.5% of ~  11.21MiB at 2.47MiB/s ETA 00:04
//	[download] 100% of 3.51MiB in 00:02
//
// The size group is optional; the extractor omits it for unknown totals.
var progressPattern = regexp.MustCompile(`\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*([\d.]+)(KiB|MiB|GiB|B|K|M|G)\b)?`)

// newLineScanner builds a scanner for extractor output with the widened
// buffer and the carriage-return aware splitter.
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(scanCROrLF)
	return sc
}

func (op *outputParser) consume(r io.Reader) {
	sc := newLineScanner(r)
	for sc.Scan() {
		op.handleLine(strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		op.logger.Warn("extractor stdout scan aborted", "error", err)
	}
}

func (op *outputParser) handleLine(line string) {
	if line == "" {
		return
	}
	switch {
	case strings.Contains(line, "[download]") && strings.Contains(line, "Destination:"):
		op.handleDestination(line)
	case strings.Contains(line, "[Merger]"):
		op.sink.StageChanged(domain.StageMerging)
		op.sink.Converting()
	case hasConvertingMarker(line):
		op.sink.Converting()
	case strings.Contains(line, "[download]") && strings.Contains(line, "%"):
		op.handleProgress(line)
	}
}

// handleDestination derives the stage from the extension of the file the
// extractor announces. Audio container extensions win over .mp4 so a
// ".temp.m4a" destination is never taken for video.
func (op *outputParser) handleDestination(line string) {
	dest := strings.TrimSpace(line[strings.Index(line, "Destination:")+len("Destination:"):])
	switch {
	case strings.HasSuffix(dest, ".m4a"),
		strings.HasSuffix(dest, ".mp3"),
		strings.HasSuffix(dest, ".opus"):
		op.sink.StageChanged(domain.StageAudio)
	case strings.HasSuffix(dest, ".mp4") && !strings.Contains(dest, ".m4a"):
		op.sink.StageChanged(domain.StageVideo)
	}
}

func (op *outputParser) handleProgress(line string) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return
	}
	if m[2] != "" {
		if total, ok := parseByteSize(m[2], m[3]); ok && total > 0 {
			op.sink.StageTotal(total)
			op.sink.Progress(int64(math.Round(float64(total) * pct / 100)))
		}
	}
	// Audio downloads keep printing download lines while the track is
	// extracted and tagged; treat the tail end as post-processing.
	if op.mode == domain.ModeAudio && pct >= 99 {
		op.sink.Converting()
	}
}

func hasConvertingMarker(line string) bool {
	for _, marker := range convertingMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// parseByteSize converts "<num><unit>" to bytes. Binary units carry the
// IEC suffixes, bare K/M/G are decimal.
func parseByteSize(num, unit string) (int64, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	var mult float64
	switch unit {
	case "B":
		mult = 1
	case "KiB":
		mult = 1 << 10
	case "MiB":
		mult = 1 << 20
	case "GiB":
		mult = 1 << 30
	case "K":
		mult = 1e3
	case "M":
		mult = 1e6
	case "G":
		mult = 1e9
	default:
		return 0, false
	}
	return int64(math.Round(v * mult)), true
}

// scanCROrLF is bufio.ScanLines extended to treat a bare '\r' as a line
// terminator, which the extractor uses to redraw its progress line in
// place.
func scanCROrLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			line := data[:i]
			if i > 0 && data[i-1] == '\r' {
				line = data[:i-1]
			}
			return i + 1, line, nil
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		if data[len(data)-1] == '\r' {
			return len(data), data[:len(data)-1], nil
		}
		return len(data), data, nil
	}
	return 0, nil, nil
}
