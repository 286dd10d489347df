package browser

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrElementNotFound signals an optional page element that simply is not
// there (no plus code, no popular times). Callers treat this as data
// absence, not failure.
var ErrElementNotFound = eris.New("browser: element not found")

// ErrStale signals a DOM read that raced a re-render. It is transient: the
// enclosing place extraction is retried a bounded number of times.
var ErrStale = eris.New("browser: stale element")

// ErrDriverFatal signals a dead browser session. The caller must discard
// the driver and start a fresh one.
var ErrDriverFatal = eris.New("browser: driver session lost")

// staleness as surfaced by the devtools protocol mid re-render.
var stalePatterns = []string{
	"could not find node",
	"node not found",
	"no node with given id",
	"detached from document",
	"stale",
}

var fatalPatterns = []string{
	"websocket url timeout",
	"websocket: close",
	"browser closed",
	"target closed",
	"connection refused",
	"chrome failed to start",
	"unexpected eof",
}

// IsStale reports whether err is worth a bounded re-read of the place.
func IsStale(err error) bool {
	if err == nil {
		return false
	}
	if eris.Is(err, ErrStale) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range stalePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err means the browser session itself is gone.
// Context cancellation is deliberately not fatal: interrupts are handled as
// a clean stop, not a driver restart.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if eris.Is(err, ErrDriverFatal) {
		return true
	}
	if eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
