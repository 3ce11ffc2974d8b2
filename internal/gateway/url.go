package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// apiPrefix marks endpoints that are already rooted at the API and skip the base.
const apiPrefix = "/api/"

// BuildURL joins base and endpoint. Endpoints that already start with base, start with
// /api/ or carry a scheme are taken as complete. Duplicate slashes in the path collapse.
func BuildURL(base, endpoint string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("api base %q: %w", base, err)
	}

	var full string
	switch {
	case base != "" && strings.HasPrefix(endpoint, base):
		full = endpoint
	case hasScheme(endpoint):
		full = endpoint
	case strings.HasPrefix(endpoint, apiPrefix):
		full = origin(b) + endpoint
	default:
		full = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("endpoint %q: %w", endpoint, err)
	}
	u.Path = collapseSlashes(u.Path)
	if u.RawPath != "" {
		u.RawPath = collapseSlashes(u.RawPath)
	}
	return u.String(), nil
}

func hasScheme(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func origin(u *url.URL) string {
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func collapseSlashes(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	var sb strings.Builder
	sb.Grow(len(p))
	prev := byte(0)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' && prev == '/' {
			continue
		}
		sb.WriteByte(c)
		prev = c
	}
	return sb.String()
}

// samePath reports whether two URLs name the same path, ignoring scheme, host and a
// trailing slash.
func samePath(a, b string) bool {
	return pathKey(a) == pathKey(b)
}

func pathKey(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return strings.TrimSuffix(collapseSlashes(p), "/")
}
