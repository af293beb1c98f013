// Package overlay produces the self-contained script served at /overlay.js.
//
// The server treats the script as an opaque string: it calls a Builder with
// the bound port and ships whatever comes back. DefaultBuilder splices the
// port into the embedded asset; integrators with their own overlay register
// a replacement via the server's builder hook.
package overlay

import (
	_ "embed"
	"strconv"
	"strings"
)

// Builder turns the bound port into the overlay script body.
type Builder func(port int) string

//go:embed overlay.js
var overlayJS string

// DefaultBuilder returns the embedded overlay script bound to port.
func DefaultBuilder(port int) string {
	return strings.ReplaceAll(overlayJS, "__DOMNOTE_PORT__", strconv.Itoa(port))
}
