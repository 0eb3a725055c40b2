package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseServerURL validates the base URL of the conversion server.
func ParseServerURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL has no host: %q", raw)
	}
	return u, nil
}

func joinPath(base *url.URL, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimRight(base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return u.String()
}

// BuildUploadURL builds the POST /upload URL.
func BuildUploadURL(base *url.URL) string {
	return joinPath(base, "upload")
}

// BuildProcessURL builds the /process/{sessionId}/{mode}/{lang} URL.
func BuildProcessURL(base *url.URL, sessionId, mode, lang string) string {
	return joinPath(base, "process", sessionId, mode, lang)
}

// BuildProgressURL builds the /progress/{sessionId} URL.
func BuildProgressURL(base *url.URL, sessionId string) string {
	return joinPath(base, "progress", sessionId)
}

// BuildDownloadURL builds the /download/{sessionId} URL.
func BuildDownloadURL(base *url.URL, sessionId string) string {
	return joinPath(base, "download", sessionId)
}

// BuildCleanupURL builds the /cleanup/{sessionId} URL.
func BuildCleanupURL(base *url.URL, sessionId string) string {
	return joinPath(base, "cleanup", sessionId)
}
