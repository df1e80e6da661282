package manifest

import (
	"net/url"
	"strings"
)

// PathOptions lists the forms a path or URL is allowed to take
type PathOptions struct {
	CanBeAsterisk   bool
	CanBeData       bool
	CanHaveProtocol bool
	CanBeAbsolute   bool
	CanBeRelative   bool
}

// PathValid classifies candidate and reports whether its form is permitted.
// Protocol-relative URLs and schemes other than http and https are never valid.
func PathValid(candidate string, opts PathOptions) bool {
	if candidate == "*" {
		return opts.CanBeAsterisk
	}

	if len(candidate) >= 5 && strings.EqualFold(candidate[:5], "data:") {
		return opts.CanBeData
	}

	if strings.HasPrefix(candidate, "//") {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	if u.Scheme == "" || u.Host == "" {
		if strings.HasPrefix(u.Path, "/") {
			return opts.CanBeAbsolute
		}
		return opts.CanBeRelative
	}

	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return false
	}
	return opts.CanHaveProtocol
}
