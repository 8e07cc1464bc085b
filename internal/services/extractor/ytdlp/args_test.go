package ytdlp

import (
	"errors"
	"reflect"
	"testing"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

func TestFormatSelector(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{"highest", "best[ext=mp4]"},
		{"", "best[ext=mp4]"},
		{"2160p", "bestvideo[height<=2160][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"},
		{"1080p", "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"},
		{"720p", "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"},
		{"480p", "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"},
		{"4K", "best[ext=mp4]"},
		{"bogus", "best[ext=mp4]"},
	}
	for _, tc := range tests {
		if got := FormatSelector(tc.quality); got != tc.want {
			t.Errorf("FormatSelector(%q) = %q, want %q", tc.quality, got, tc.want)
		}
	}
}

func TestBuildDownloadArgsVideo(t *testing.T) {
	opts := domain.JobOptions{
		URL:     "https://www.youtube.com/watch?v=abc123",
		JobID:   "job-1",
		Mode:    domain.ModeVideo,
		Quality: "1080p",
	}

	got := BuildDownloadArgs(opts, "/downloads", "")
	want := []string{
		"-f", "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
		"--remux-video=mp4",
		"-o", "/downloads/job-1.temp.%(ext)s",
		"--no-warnings",
		"--newline",
		"https://www.youtube.com/watch?v=abc123",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestBuildDownloadArgsAudio(t *testing.T) {
	opts := domain.JobOptions{
		URL:    "https://www.youtube.com/watch?v=abc123",
		JobID:  "job-2",
		Mode:   domain.ModeAudio,
		Format: "opus",
	}

	got := BuildDownloadArgs(opts, "/music", "")
	want := []string{
		"-x",
		"--audio-format=opus",
		"--audio-quality=0",
		"-o", "/music/job-2.temp.%(ext)s",
		"--no-warnings",
		"--newline",
		"https://www.youtube.com/watch?v=abc123",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestBuildDownloadArgsAudioDefaultsFormat(t *testing.T) {
	opts := domain.JobOptions{
		URL:   "https://youtu.be/abc123",
		JobID: "job-3",
		Mode:  domain.ModeAudio,
	}

	got := BuildDownloadArgs(opts, "/music", "")
	if got[1] != "--audio-format=mp3" {
		t.Fatalf("audio format arg = %q, want --audio-format=mp3", got[1])
	}
}

func TestBuildDownloadArgsSubtitles(t *testing.T) {
	opts := domain.JobOptions{
		URL:              "https://www.youtube.com/watch?v=abc123",
		JobID:            "job-4",
		Mode:             domain.ModeVideo,
		Quality:          "720p",
		DownloadSubs:     true,
		SubtitleLanguage: "en",
	}

	got := BuildDownloadArgs(opts, "/downloads", "")
	if !containsPair(got, "--sub-langs", "en.*") {
		t.Fatalf("expected --sub-langs en.* in %v", got)
	}
	if !contains(got, "--embed-subs") {
		t.Fatalf("expected --embed-subs in %v", got)
	}
}

func TestBuildDownloadArgsSubtitlesIgnoredForAudio(t *testing.T) {
	opts := domain.JobOptions{
		URL:          "https://www.youtube.com/watch?v=abc123",
		JobID:        "job-5",
		Mode:         domain.ModeAudio,
		Format:       "mp3",
		DownloadSubs: true,
	}

	got := BuildDownloadArgs(opts, "/music", "")
	if contains(got, "--embed-subs") {
		t.Fatalf("audio mode must not embed subtitles: %v", got)
	}
}

func TestBuildDownloadArgsCookies(t *testing.T) {
	opts := domain.JobOptions{
		URL:   "https://www.youtube.com/watch?v=abc123",
		JobID: "job-6",
		Mode:  domain.ModeVideo,
	}

	got := BuildDownloadArgs(opts, "/downloads", "cookies.txt")
	if !containsPair(got, "--cookies", "cookies.txt") {
		t.Fatalf("expected --cookies cookies.txt in %v", got)
	}
	if got[len(got)-1] != opts.URL {
		t.Fatalf("url must be the final argument, got %v", got)
	}
}

func TestBuildEstimateArgs(t *testing.T) {
	tests := []struct {
		name string
		req  ports.SizeRequest
		want []string
	}{
		{
			name: "video with playlist selection",
			req: ports.SizeRequest{
				URL:           "https://www.youtube.com/playlist?list=PL1",
				Mode:          domain.ModeVideo,
				Quality:       "720p",
				PlaylistItems: "1-5",
			},
			want: []string{
				"--skip-download", "-j", "--ignore-errors", "--no-warnings",
				"-f", "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
				"--playlist-items", "1-5",
				"https://www.youtube.com/playlist?list=PL1",
			},
		},
		{
			name: "audio",
			req: ports.SizeRequest{
				URL:  "https://youtu.be/abc123",
				Mode: domain.ModeAudio,
			},
			want: []string{
				"--skip-download", "-j", "--ignore-errors", "--no-warnings",
				"-f", "bestaudio",
				"https://youtu.be/abc123",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildEstimateArgs(tc.req, "")
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("args mismatch:\n got %v\nwant %v", got, tc.want)
			}
		})
	}
}

func TestValidatePlaylistItems(t *testing.T) {
	valid := []string{"", "1", "7", "1,3,5", "2-6", "1,4-8,12"}
	for _, spec := range valid {
		if err := ValidatePlaylistItems(spec); err != nil {
			t.Errorf("ValidatePlaylistItems(%q) = %v, want nil", spec, err)
		}
	}

	invalid := []string{"a", "1,,2", "1-", "-2", "0", "3-x", "1, 2,", "2-6-9"}
	for _, spec := range invalid {
		err := ValidatePlaylistItems(spec)
		if err == nil {
			t.Errorf("ValidatePlaylistItems(%q) = nil, want error", spec)
			continue
		}
		if !errors.Is(err, domain.ErrInvalidPlaylistItems) {
			t.Errorf("ValidatePlaylistItems(%q) = %v, want ErrInvalidPlaylistItems", spec, err)
		}
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
