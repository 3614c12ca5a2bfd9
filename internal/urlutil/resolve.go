package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is the sentinel matched by every InvalidURLError.
var ErrInvalidURL = errors.New("invalid url")

// InvalidURLError reports an href that could not be turned into an absolute URL.
type InvalidURLError struct {
	Href string
	Err  error
}

// Error implements error.
func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid url %q: %v", e.Href, e.Err)
	}
	return fmt.Sprintf("invalid url %q", e.Href)
}

// Unwrap returns the underlying parse error.
func (e *InvalidURLError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidURL.
func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// schemePattern matches an href that already carries a scheme ("https:", "mailto:").
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// Resolve turns href into an absolute URL string.
// An href that already starts with a scheme is returned as-is once it parses.
// Anything else (relative paths, protocol-relative "//host/x", "#frag",
// "?q=1") is resolved against base with RFC 3986 rules.
func Resolve(href string, base *url.URL) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", &InvalidURLError{Href: href, Err: errors.New("empty href")}
	}

	if schemePattern.MatchString(href) {
		if _, err := url.Parse(href); err != nil {
			return "", &InvalidURLError{Href: href, Err: err}
		}
		return href, nil
	}

	if base == nil || !base.IsAbs() {
		return "", &InvalidURLError{Href: href, Err: errors.New("base url is not absolute")}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", &InvalidURLError{Href: href, Err: err}
	}
	return base.ResolveReference(ref).String(), nil
}

// Domain returns the hostname of an absolute URL, without port.
// It returns an empty string for URLs without a host such as mailto: links.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// pathPatterns mark administrative pages: wiki namespaces, edit views and
// the script path used for non-article actions.
var pathPatterns = []string{
	"/w/",
	"Special:",
	"File:",
	"Category:",
	"Help:",
	"Template:",
	"Wikipedia:",
	"action=",
	"oldid=",
	"diff=",
	"redlink=1",
	"edit",
}

// queryPatterns are the parameters that select revisions or actions.
var queryPatterns = []string{
	"action=",
	"oldid=",
	"diff=",
	"redlink=1",
}

// ShouldInclude reports whether an absolute URL looks like content.
// It returns false for URLs whose path contains an administrative pattern,
// whose query selects an edit action or revision, or that do not parse.
func ShouldInclude(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	for _, p := range pathPatterns {
		if strings.Contains(path, p) {
			return false
		}
	}
	for _, p := range queryPatterns {
		if strings.Contains(u.RawQuery, p) {
			return false
		}
	}
	return true
}
