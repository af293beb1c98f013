// Package origincheck classifies HTTP Origin header values as loopback-safe.
//
// The annotation server only ever talks to a browser on the same machine, so
// anything that is not plain http/https on localhost is rejected. Matching is
// on the exact hostname — "localhost.evil.com" does not pass.
package origincheck

import (
	"net/url"
)

// Allowed reports whether origin is an http(s) URL whose hostname is exactly
// localhost, 127.0.0.1 or [::1]. The empty string is never allowed.
func Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Validate returns origin unchanged when it passes Allowed, and "" otherwise.
// Handlers use the returned value directly as the CORS echo.
func Validate(origin string) string {
	if Allowed(origin) {
		return origin
	}
	return ""
}
