package naming

import (
	"errors"
	"testing"
	"time"

	"mediafetch/internal/domain"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		contentType domain.ContentType
		mode        domain.DownloadMode
	}{
		{"single video", "<title> - <quality>", domain.ContentSingle, domain.ModeVideo},
		{"single audio", "<title>", domain.ContentSingle, domain.ModeAudio},
		{"playlist video", "<index> - <title> - <quality>", domain.ContentPlaylist, domain.ModeVideo},
		{"playlist audio", "<index> - <title>", domain.ContentPlaylist, domain.ModeAudio},
		{"optional tags", "<channel> <date> <title> [<format>]", domain.ContentSingle, domain.ModeAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.template, tt.contentType, tt.mode); err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.template, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		contentType domain.ContentType
		mode        domain.DownloadMode
		wantKind    ErrorKind
		wantTags    []string
	}{
		{"empty", "", domain.ContentSingle, domain.ModeAudio, KindEmpty, nil},
		{"whitespace only", "   ", domain.ContentSingle, domain.ModeAudio, KindEmpty, nil},
		{"missing index and quality", "<title>", domain.ContentPlaylist, domain.ModeVideo, KindMissingMandatory, []string{"<index>", "<quality>"}},
		{"missing title", "<quality>", domain.ContentSingle, domain.ModeVideo, KindMissingMandatory, []string{"<title>"}},
		{"illegal question mark", "<title>?", domain.ContentSingle, domain.ModeAudio, KindInvalidCharacter, []string{"?"}},
		{"illegal slash", "dir/<title>", domain.ContentSingle, domain.ModeAudio, KindInvalidCharacter, []string{"/"}},
		{"unknown tag counts as brackets", "<title> <foo>", domain.ContentSingle, domain.ModeAudio, KindInvalidCharacter, []string{"<", ">"}},
		{"index for single", "<index> - <title> - <quality>", domain.ContentSingle, domain.ModeVideo, KindInvalidTag, []string{"<index>"}},
		{"quality for audio", "<title> - <quality>", domain.ContentSingle, domain.ModeAudio, KindInvalidTag, []string{"<quality>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.template, tt.contentType, tt.mode)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want %s", tt.template, tt.wantKind)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate(%q) returned %T, want *ValidationError", tt.template, err)
			}
			if verr.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", verr.Kind, tt.wantKind)
			}
			if len(verr.Tags) != len(tt.wantTags) {
				t.Fatalf("tags = %v, want %v", verr.Tags, tt.wantTags)
			}
			for i := range tt.wantTags {
				if verr.Tags[i] != tt.wantTags[i] {
					t.Errorf("tags[%d] = %q, want %q", i, verr.Tags[i], tt.wantTags[i])
				}
			}
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	template := "<index> - <title>"
	first := Validate(template, domain.ContentSingle, domain.ModeAudio)
	second := Validate(template, domain.ContentSingle, domain.ModeAudio)

	var a, b *ValidationError
	if !errors.As(first, &a) || !errors.As(second, &b) {
		t.Fatal("both calls should produce a ValidationError")
	}
	if a.Kind != b.Kind {
		t.Errorf("kinds differ between calls: %s vs %s", a.Kind, b.Kind)
	}
}

func TestResolveSubstitutesAllTags(t *testing.T) {
	in := ResolveInput{
		Title:   "Hello: World",
		Channel: "Some/Artist",
		Quality: "1080p",
		Format:  "mp4",
		Index:   3,
		Mode:    domain.ModeVideo,
		Now:     time.Date(2026, time.August, 25, 15, 4, 5, 0, time.Local),
	}

	got, err := Resolve("<index> - <title> [<quality>] <channel> <date> <format>", in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := "03 - Hello - World [1080P] Some_Artist 25-08-2026 MP4"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveReplacesEveryOccurrence(t *testing.T) {
	in := ResolveInput{Title: "Song", Mode: domain.ModeAudio}

	got, err := Resolve("<title> <title>", in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "Song Song" {
		t.Errorf("Resolve = %q, want %q", got, "Song Song")
	}
}

func TestResolveIndexPadding(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{1, "01"},
		{9, "09"},
		{10, "10"},
		{123, "123"},
	}

	for _, tt := range tests {
		got, err := Resolve("<index>", ResolveInput{Index: tt.index, Mode: domain.ModeAudio})
		if err != nil {
			t.Fatalf("Resolve(index=%d) returned error: %v", tt.index, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(index=%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve("<index> - <title>", ResolveInput{Title: "x", Index: 0, Mode: domain.ModeAudio})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindInvalidIndex {
		t.Fatalf("index 0: got %v, want kind %s", err, KindInvalidIndex)
	}

	_, err = Resolve("<title> - <quality>", ResolveInput{Title: "x", Mode: domain.ModeVideo})
	if !errors.As(err, &verr) || verr.Kind != KindInvalidQuality {
		t.Fatalf("empty quality: got %v, want kind %s", err, KindInvalidQuality)
	}
}
