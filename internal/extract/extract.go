// Package extract runs the per-place scrape pipeline: coordinates, plus
// code, attributes, popular times, feature persistence.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placetimes/internal/browser"
	"github.com/sells-group/placetimes/internal/discovery"
	"github.com/sells-group/placetimes/internal/feature"
	"github.com/sells-group/placetimes/internal/geocode"
	"github.com/sells-group/placetimes/internal/populartimes"
	"github.com/sells-group/placetimes/internal/resilience"
	"github.com/sells-group/placetimes/internal/store"
)

// adPrefix marks sponsored feed entries, which are never clicked.
const adPrefix = "Ad ·"

// Config wires the extractor's collaborators and budgets.
type Config struct {
	// OutFile is the feature collection path saved after every place.
	OutFile string
	// Discovery bounds the feed scroll loop.
	Discovery discovery.Options
	// Retry bounds the stale-element re-read of a place.
	Retry resilience.RetryConfig
}

// PageStats summarizes one search-result page.
type PageStats struct {
	// Entries is how many feed entries the page exposed (the n_places
	// figure written back into the locations file).
	Entries   int
	Extracted int
	Skipped   int
	Failed    int
}

// Extractor drives place extraction through a browser session.
type Extractor struct {
	drv browser.Driver
	cfg Config
	now func() time.Time
}

// New creates an extractor over drv.
func New(drv browser.Driver, cfg Config) *Extractor {
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = browser.IsStale
	}
	return &Extractor{drv: drv, cfg: cfg, now: time.Now}
}

// Page processes the current search-result page: enumerate the feed, visit
// every unseen entry, and fall back to single-result extraction when the
// page has no feed. onPlaceError is invoked for each place that failed
// place-scoped (already logged); fatal driver errors and cancellation abort
// the page instead.
func (e *Extractor) Page(ctx context.Context, st *store.FeatureStore, onPlaceError func(name string, err error)) (PageStats, error) {
	log := zap.L().With(zap.String("component", "extract"))

	entries, err := discovery.Places(ctx, e.drv, e.cfg.Discovery)
	if err != nil {
		if eris.Is(err, discovery.ErrNoResults) {
			return e.singleResult(ctx, st)
		}
		return PageStats{}, err
	}

	stats := PageStats{Entries: len(entries)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if strings.HasPrefix(entry.Name, adPrefix) {
			log.Debug("skipping ad entry", zap.String("name", entry.Name))
			continue
		}
		if st.Contains(entry.Link) {
			log.Debug("skipping known place", zap.String("name", entry.Name))
			stats.Skipped++
			continue
		}

		log.Info("extracting place", zap.String("name", entry.Name))
		if err := e.clickAndExtract(ctx, st, entry); err != nil {
			if ctx.Err() != nil || browser.IsFatal(err) {
				return stats, err
			}
			stats.Failed++
			log.Error("place extraction failed",
				zap.String("name", entry.Name),
				zap.String("link", entry.Link),
				zap.Error(err),
			)
			if onPlaceError != nil {
				onPlaceError(entry.Name, err)
			}
			continue
		}
		stats.Extracted++
	}
	return stats, nil
}

// singleResult handles the layout where the search resolved straight to one
// place page instead of a feed.
func (e *Extractor) singleResult(ctx context.Context, st *store.FeatureStore) (PageStats, error) {
	name, err := e.drv.SingleResultName(ctx)
	if err != nil {
		return PageStats{}, eris.Wrap(err, "extract: single result title")
	}
	link, err := e.drv.CurrentURL(ctx)
	if err != nil {
		return PageStats{}, eris.Wrap(err, "extract: single result url")
	}

	stats := PageStats{Entries: 1}
	if st.Contains(link) {
		zap.L().Debug("skipping known place", zap.String("name", name))
		stats.Skipped++
		return stats, nil
	}
	if err := e.Place(ctx, st, name, link); err != nil {
		return stats, err
	}
	stats.Extracted++
	return stats, nil
}

func (e *Extractor) clickAndExtract(ctx context.Context, st *store.FeatureStore, entry browser.Entry) error {
	if err := e.drv.ClickEntry(ctx, entry.Link); err != nil {
		return err
	}
	return e.Place(ctx, st, entry.Name, entry.Link)
}

// Place scrapes one place into st and saves the collection. The whole read
// is retried a bounded number of times when a mid-read re-render staled an
// element; anything past the bound surfaces hard.
func (e *Extractor) Place(ctx context.Context, st *store.FeatureStore, name, link string) error {
	cfg := e.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("extract", "place "+name)
	}
	if err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return e.placeOnce(ctx, st, name, link)
	}); err != nil {
		return err
	}
	return st.Save(e.cfg.OutFile)
}

func (e *Extractor) placeOnce(ctx context.Context, st *store.FeatureStore, name, link string) error {
	log := zap.L().With(
		zap.String("component", "extract"),
		zap.String("place", name),
	)

	approx, err := geocode.FromURL(link)
	if err != nil {
		return err
	}

	pt := approx
	var code string
	if label, err := e.drv.PlusCodeLabel(ctx); err == nil {
		raw := trimAfterColon(label)
		if refined, ok := geocode.Refine(raw, approx); ok {
			pt = refined
			code = raw
		} else {
			log.Warn("plus code did not decode, keeping approximate coordinate",
				zap.String("code", raw),
			)
		}
	} else if !eris.Is(err, browser.ErrElementNotFound) {
		return err
	} else {
		log.Debug("no plus code, coordinate may be approximate")
	}

	var address, category string
	if label, err := e.drv.AddressLabel(ctx); err == nil {
		address = trimAfterColon(label)
	} else if !eris.Is(err, browser.ErrElementNotFound) {
		return err
	}
	if text, err := e.drv.CategoryText(ctx); err == nil {
		category = text
	} else if !eris.Is(err, browser.ErrElementNotFound) {
		return err
	}

	var times *populartimes.Result
	if groups, err := e.drv.PopularTimesGroups(ctx); err == nil {
		times = populartimes.Build(groups)
	} else if !eris.Is(err, browser.ErrElementNotFound) {
		return err
	} else {
		log.Debug("no popular times available")
	}

	f, err := feature.New(name, link, pt, times, e.now())
	if err != nil {
		return err
	}
	if address != "" {
		f.SetAddress(address)
	}
	if category != "" {
		f.SetCategory(category)
	}
	if code != "" {
		f.SetCode(code)
	}

	st.Put(link, f)
	return nil
}

// trimAfterColon returns the trimmed text after the last colon, the layout
// of the "Plus code: X" and "Address: Y" button labels.
func trimAfterColon(label string) string {
	if i := strings.LastIndex(label, ":"); i >= 0 {
		label = label[i+1:]
	}
	return strings.TrimSpace(label)
}
