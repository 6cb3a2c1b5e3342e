package extract

import (
	"net/url"
	"strings"
)

// ResolveURL turns an href into an absolute http(s) URL. Absolute URLs are
// kept, protocol-relative ones get https, relative ones resolve against base.
// Anything else (mailto, javascript, malformed) is dropped.
func ResolveURL(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return checkHTTP(href)
	case strings.HasPrefix(href, "//"):
		return checkHTTP("https:" + href)
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return checkHTTP(baseURL.ResolveReference(ref).String())
}

func checkHTTP(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return raw, true
}
