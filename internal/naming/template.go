package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"mediafetch/internal/domain"
)

// Tag vocabulary recognised inside naming templates. Anything else between
// angle brackets is not a tag and its brackets count as illegal characters.
const (
	TagTitle   = "<title>"
	TagIndex   = "<index>"
	TagQuality = "<quality>"
	TagChannel = "<channel>"
	TagDate    = "<date>"
	TagFormat  = "<format>"
)

type ErrorKind string

const (
	KindEmpty            ErrorKind = "empty"
	KindInvalidCharacter ErrorKind = "invalid_character"
	KindMissingMandatory ErrorKind = "missing_mandatory"
	KindInvalidTag       ErrorKind = "invalid_tag"
	KindInvalidIndex     ErrorKind = "invalid_index"
	KindInvalidQuality   ErrorKind = "invalid_quality"
)

// ValidationError reports why a template was rejected. Tags carries the
// offending tags or characters, depending on the kind.
type ValidationError struct {
	Kind ErrorKind
	Tags []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "naming template is empty"
	case KindInvalidCharacter:
		return "naming template contains invalid characters: " + strings.Join(e.Tags, " ")
	case KindMissingMandatory:
		return "naming template is missing mandatory tags: " + strings.Join(e.Tags, ", ")
	case KindInvalidTag:
		return "naming template uses tags not allowed here: " + strings.Join(e.Tags, ", ")
	case KindInvalidIndex:
		return "playlist index must be 1 or greater"
	case KindInvalidQuality:
		return "quality is required to resolve " + TagQuality
	default:
		return "naming template is invalid: " + string(e.Kind)
	}
}

var tagPattern = regexp.MustCompile(`<(?:title|index|quality|channel|date|format)>`)

// Validate checks a template against the tag rules for the given content
// type and mode. It is a pure function: equal inputs yield equal verdicts.
func Validate(template string, contentType domain.ContentType, mode domain.DownloadMode) error {
	if strings.TrimSpace(template) == "" {
		return &ValidationError{Kind: KindEmpty}
	}

	literal := tagPattern.ReplaceAllString(template, "")
	if bad := illegalCharacters(literal); len(bad) > 0 {
		return &ValidationError{Kind: KindInvalidCharacter, Tags: bad}
	}

	used := map[string]bool{}
	for _, tag := range tagPattern.FindAllString(template, -1) {
		used[tag] = true
	}

	var disallowed []string
	if used[TagIndex] && contentType != domain.ContentPlaylist {
		disallowed = append(disallowed, TagIndex)
	}
	if used[TagQuality] && mode != domain.ModeVideo {
		disallowed = append(disallowed, TagQuality)
	}
	if len(disallowed) > 0 {
		return &ValidationError{Kind: KindInvalidTag, Tags: disallowed}
	}

	var missing []string
	if !used[TagTitle] {
		missing = append(missing, TagTitle)
	}
	if contentType == domain.ContentPlaylist && !used[TagIndex] {
		missing = append(missing, TagIndex)
	}
	if mode == domain.ModeVideo && !used[TagQuality] {
		missing = append(missing, TagQuality)
	}
	if len(missing) > 0 {
		return &ValidationError{Kind: KindMissingMandatory, Tags: missing}
	}

	return nil
}

// ResolveInput carries the metadata substituted into a template.
type ResolveInput struct {
	Title   string
	Channel string
	Quality string
	Format  string
	Index   int
	Mode    domain.DownloadMode
	Now     time.Time
}

// Resolve substitutes every tag occurrence and returns the final basename
// without extension. Title and channel pass through Sanitize; quality and
// format are uppercased; the index is zero-padded to two digits; the date
// renders as DD-MM-YYYY in local time.
func Resolve(template string, in ResolveInput) (string, error) {
	if strings.Contains(template, TagIndex) && in.Index < 1 {
		return "", &ValidationError{Kind: KindInvalidIndex}
	}
	if in.Mode == domain.ModeVideo && strings.Contains(template, TagQuality) && strings.TrimSpace(in.Quality) == "" {
		return "", &ValidationError{Kind: KindInvalidQuality}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := template
	out = strings.ReplaceAll(out, TagTitle, Sanitize(in.Title))
	out = strings.ReplaceAll(out, TagChannel, Sanitize(in.Channel))
	out = strings.ReplaceAll(out, TagDate, now.Format("02-01-2006"))
	out = strings.ReplaceAll(out, TagFormat, strings.ToUpper(in.Format))
	if in.Mode == domain.ModeVideo {
		out = strings.ReplaceAll(out, TagQuality, strings.ToUpper(in.Quality))
	}
	out = strings.ReplaceAll(out, TagIndex, fmt.Sprintf("%02d", in.Index))
	return out, nil
}

const reservedCharacters = `\/:*?"|<>`

func illegalCharacters(literal string) []string {
	var found []string
	seen := map[rune]bool{}
	for _, r := range literal {
		if !strings.ContainsRune(reservedCharacters, r) || seen[r] {
			continue
		}
		seen[r] = true
		found = append(found, string(r))
	}
	return found
}
