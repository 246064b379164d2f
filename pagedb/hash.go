package pagedb

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the content-addressed identifier of a URL: xxhash64 over
// the normalised URL string. Every subsystem that refers to a page by
// number uses this value.
func Hash(url string) uint64 {
	return xxhash.Sum64String(normalizeURL(url))
}

// normalizeURL trims whitespace and a single trailing slash so the
// common spelling variants of one address hash identically.
func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if len(url) > 1 && strings.HasSuffix(url, "/") {
		url = url[:len(url)-1]
	}
	return url
}
