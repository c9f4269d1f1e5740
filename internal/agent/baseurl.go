package agent

import (
	"net/url"
	"strings"
)

var endpointSuffixes = []string{"/chat/completions", "/completions", "/responses", "/messages"}

// NormalizeBaseURL strips a pasted endpoint path from raw and pins the API
// version segment. With version "" any trailing "/v1" is removed instead, for
// SDKs that add it themselves.
func NormalizeBaseURL(raw, version string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	for _, suffix := range endpointSuffixes {
		if strings.HasSuffix(path, suffix) {
			path = strings.TrimSuffix(path, suffix)
			break
		}
	}
	path = strings.TrimRight(path, "/")
	for strings.HasSuffix(path, "/v1") {
		path = strings.TrimRight(strings.TrimSuffix(path, "/v1"), "/")
	}
	if version != "" {
		path += "/" + strings.Trim(version, "/")
	}

	parsed.Path = path
	parsed.RawPath = ""
	return parsed.String()
}
