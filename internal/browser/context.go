package browser

import (
	"context"
	"encoding/json"
)

// mergeContexts derives a context from the chromedp session context that is
// also cancelled when the caller's context ends. chromedp actions must run
// on the session context chain; this keeps caller deadlines effective
// without losing the session.
func mergeContexts(session, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
