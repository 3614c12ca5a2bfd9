// Package urlutil resolves hrefs found in a page to absolute URLs and
// decides which of them point at content rather than site administration.
package urlutil
