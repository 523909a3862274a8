package cache

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes rawURL to scheme://host/path so that volatile
// parts (query, fragment, trailing slash) do not split one page into several
// cache subjects. Relative URLs are resolved against base when base is set.
// NormalizeURL never fails: input that does not parse as an absolute URL is
// cut at the first '?' or '#' and loses one trailing slash.
func NormalizeURL(rawURL, base string) string {
	u, err := resolveURL(rawURL, base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallbackNormalize(rawURL)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

func resolveURL(rawURL, base string) (*url.URL, error) {
	if base == "" {
		return url.Parse(rawURL)
	}

	b, err := url.Parse(base)
	if err != nil {
		return url.Parse(rawURL)
	}
	return b.Parse(rawURL)
}

// fallbackNormalize strips query and fragment without parsing.
func fallbackNormalize(rawURL string) string {
	s := rawURL
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}
