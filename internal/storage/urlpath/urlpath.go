// Package urlpath percent-encodes storage keys for use in URL paths.
package urlpath

import (
	"net/url"
	"strings"
)

// Escape encodes every "/"-separated segment of key with path-segment rules.
// Spaces become %20; "+" and other sub-delimiters are left alone.
func Escape(key string) string {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Join appends an escaped key to base, which may carry its own path.
func Join(base, escapedKey string) string {
	return strings.TrimRight(base, "/") + "/" + escapedKey
}
