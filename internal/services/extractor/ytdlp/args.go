package ytdlp

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

// DefaultBinary is the extractor executable looked up on PATH when no
// explicit path is configured.
const DefaultBinary = "yt-dlp"

// CookiesFile is probed in the process working directory. When present it is
// forwarded to every extractor invocation.
const CookiesFile = "cookies.txt"

const fallbackSelector = "best[ext=mp4]"

// FormatSelector maps an API quality label onto an extractor format
// selector. Height-capped qualities prefer an mp4 video stream plus an m4a
// audio stream so the merge step is a remux rather than a re-encode.
func FormatSelector(quality string) string {
	switch quality {
	case "", "highest":
		return fallbackSelector
	}
	height, err := strconv.Atoi(strings.TrimSuffix(quality, "p"))
	if err != nil || height <= 0 {
		return fallbackSelector
	}
	return fmt.Sprintf("bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]", height)
}

const defaultAudioFormat = "mp3"

// BuildDownloadArgs assembles the argument vector for one download run.
// This is a pure function with no side effects; the caller resolves
// cookiesPath and passes "" when no credentials file exists. The URL is
// always the final argument.
func BuildDownloadArgs(opts domain.JobOptions, outputDir, cookiesPath string) []string {
	var args []string

	if opts.Mode == domain.ModeAudio {
		format := opts.Format
		if format == "" {
			format = defaultAudioFormat
		}
		args = append(args,
			"-x",
			"--audio-format="+format,
			"--audio-quality=0",
		)
	} else {
		args = append(args,
			"-f", FormatSelector(opts.Quality),
			"--remux-video=mp4",
		)
	}

	args = append(args,
		"-o", filepath.Join(outputDir, opts.JobID+".temp.%(ext)s"),
		"--no-warnings",
		"--newline",
	)

	if opts.Mode == domain.ModeVideo && opts.DownloadSubs {
		args = append(args, "--embed-subs")
		lang := opts.SubtitleLanguage
		if lang == "" || strings.HasPrefix(lang, "en") {
			args = append(args, "--sub-langs", "en.*")
		} else {
			args = append(args, "--sub-langs", lang)
		}
	}

	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}

	return append(args, opts.URL)
}

// BuildEstimateArgs assembles the argument vector for a size probe. The
// probe never downloads; it asks for one JSON record per video and keeps
// going past unavailable playlist entries. Audio estimates restrict the
// selection to the audio stream, which is the byte count the format
// projection factors are defined against.
func BuildEstimateArgs(req ports.SizeRequest, cookiesPath string) []string {
	args := []string{
		"--skip-download",
		"-j",
		"--ignore-errors",
		"--no-warnings",
	}

	if req.Mode == domain.ModeAudio {
		args = append(args, "-f", "bestaudio")
	} else {
		args = append(args, "-f", FormatSelector(req.Quality))
	}

	if req.PlaylistItems != "" {
		args = append(args, "--playlist-items", req.PlaylistItems)
	}
	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}

	return append(args, req.URL)
}

// ValidatePlaylistItems checks the selection grammar shared with the
// extractor: a comma-separated list where each element is an index or an
// inclusive A-B range. Violations wrap domain.ErrInvalidPlaylistItems.
func ValidatePlaylistItems(spec string) error {
	if spec == "" {
		return nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("%w: %q has an empty element", domain.ErrInvalidPlaylistItems, spec)
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			if !isPlaylistIndex(lo) {
				return fmt.Errorf("%w: %q is not an index", domain.ErrInvalidPlaylistItems, part)
			}
			continue
		}
		if !isPlaylistIndex(lo) || !isPlaylistIndex(hi) {
			return fmt.Errorf("%w: %q is not a range", domain.ErrInvalidPlaylistItems, part)
		}
	}
	return nil
}

func isPlaylistIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1
}
