package naming

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	sanitizeReplacer = strings.NewReplacer(
		":", " - ",
		"/", "_",
		"\\", "_",
		"?", "",
		`"`, "'",
		"<", "[",
		">", "]",
		"|", "-",
		"*", "_",
	)
	spaceRun = regexp.MustCompile(`\s+`)
)

// Sanitize maps filesystem-reserved characters to safe stand-ins, collapses
// whitespace runs and trims trailing whitespace and dots. Applying it twice
// yields the same output as applying it once.
func Sanitize(value string) string {
	out := sanitizeReplacer.Replace(value)
	out = spaceRun.ReplaceAllString(out, " ")
	return strings.TrimRightFunc(out, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.'
	})
}
