package apihttp

import (
	"net/url"
	"strings"

	"mediafetch/internal/domain"
)

// allowedMediaHosts is the host whitelist for inbound media URLs. Nothing
// outside it ever reaches an extractor subprocess.
var allowedMediaHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// keptQueryParams are the only query parameters that survive sanitisation;
// everything else is treated as tracking noise and dropped.
var keptQueryParams = []string{"v", "list", "t"}

// sanitizeMediaURL checks a user-supplied URL against the host whitelist and
// strips extraneous query parameters. It returns the canonical form handed to
// the extractor, or domain.ErrInvalidURL.
func sanitizeMediaURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.ErrInvalidURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", domain.ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domain.ErrInvalidURL
	}
	if !allowedMediaHosts[strings.ToLower(parsed.Hostname())] {
		return "", domain.ErrInvalidURL
	}

	query := parsed.Query()
	filtered := url.Values{}
	for _, key := range keptQueryParams {
		if value := query.Get(key); value != "" {
			filtered.Set(key, value)
		}
	}
	parsed.RawQuery = filtered.Encode()
	parsed.Fragment = ""

	return parsed.String(), nil
}
