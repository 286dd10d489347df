// Package discovery enumerates candidate places from the scrollable results
// feed.
package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placetimes/internal/browser"
)

// ErrNoResults signals a search that produced no feed entries at all. This
// is distinct from a short feed: the caller falls back to single-result
// extraction.
var ErrNoResults = eris.New("discovery: no places in feed")

// Options bounds the scroll loop.
type Options struct {
	// TargetPlaces stops scrolling once this many entries are visible.
	TargetPlaces int
	// MaxScrolls caps the scroll attempts; the feed may legitimately hold
	// fewer places than the target.
	MaxScrolls int
}

// DefaultOptions mirrors the feed's practical depth: around 120 entries is
// where the UI stops loading more.
func DefaultOptions() Options {
	return Options{TargetPlaces: 120, MaxScrolls: 10}
}

// Places scrolls the results feed until at least TargetPlaces entries are
// visible or the scroll budget runs out, then returns whatever is there.
// The returned list may be shorter than the target. Zero entries maps to
// ErrNoResults; so does a page with no feed at all, letting the caller try
// the single-result layout.
func Places(ctx context.Context, drv browser.Driver, opts Options) ([]browser.Entry, error) {
	if opts.TargetPlaces <= 0 || opts.MaxScrolls <= 0 {
		opts = DefaultOptions()
	}

	log := zap.L().With(zap.String("component", "discovery"))

	var entries []browser.Entry
	for scroll := 0; scroll < opts.MaxScrolls && len(entries) < opts.TargetPlaces; scroll++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := drv.ScrollFeed(ctx); err != nil {
			if eris.Is(err, browser.ErrElementNotFound) {
				return nil, eris.Wrap(ErrNoResults, "no results feed on page")
			}
			return nil, eris.Wrap(err, "discovery: scroll")
		}

		var err error
		entries, err = drv.FeedEntries(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "discovery: enumerate feed")
		}
		log.Debug("scrolled feed", zap.Int("scroll", scroll+1), zap.Int("entries", len(entries)))
	}

	if len(entries) == 0 {
		return nil, ErrNoResults
	}

	log.Info("discovered places", zap.Int("count", len(entries)))
	return entries, nil
}
