// Package browser wraps the headless-Chrome session behind the small set of
// DOM reads the scrape pipeline needs, so the pipeline itself stays
// testable against fakes.
package browser

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Entry is one (name, link) pair from the results feed.
type Entry struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Driver is the DOM surface the extraction pipeline reads through.
type Driver interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// ScrollFeed scrolls the results feed to the bottom. ErrElementNotFound
	// when no feed is on the page.
	ScrollFeed(ctx context.Context) error

	// FeedEntries lists the labelled result links currently in the feed.
	FeedEntries(ctx context.Context) ([]Entry, error)

	// ClickEntry clicks the feed entry whose href matches link.
	ClickEntry(ctx context.Context, link string) error

	// PlusCodeLabel returns the full "Plus code: XXXX+XX City" button label.
	PlusCodeLabel(ctx context.Context) (string, error)

	// AddressLabel returns the copy-address button label.
	AddressLabel(ctx context.Context) (string, error)

	// CategoryText returns the place category button text.
	CategoryText(ctx context.Context) (string, error)

	// PopularTimesGroups returns the aria-labels of each day container in
	// display order, one slice per day. ErrElementNotFound when the page
	// has no popular-times section.
	PopularTimesGroups(ctx context.Context) ([][]string, error)

	// SingleResultName returns the h1 title on a single-result page.
	SingleResultName(ctx context.Context) (string, error)

	// PageSource returns the current document markup.
	PageSource(ctx context.Context) (string, error)

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close tears the session down.
	Close() error
}

// Selectors for the map UI, ported from the live page.
const (
	selFeed         = `div[role='feed']`
	selFeedEntries  = `div[role='feed'] a[aria-label]`
	selPlusCode     = `button[aria-label^='Plus code:']`
	selAddress      = `button[data-tooltip='Copy address']`
	selCategory     = `button[jsaction='pane.rating.category']`
	selPopularTimes = `div[aria-label^='Popular times']`
	selDayGroup     = `div.g2BVhd`
)

// Options configures the Chrome session.
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
}

// Chrome drives a headless Chrome instance over the devtools protocol.
type Chrome struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewChrome launches a browser session. Close must be called to release it.
func NewChrome(opts Options) (*Chrome, error) {
	if opts.WindowWidth <= 0 {
		opts.WindowWidth = 1920
	}
	if opts.WindowHeight <= 0 {
		opts.WindowHeight = 1080
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Page-side exceptions otherwise vanish silently; surface them so a
	// selector script that throws shows up in the logs.
	chromedp.ListenTarget(ctx, func(ev any) {
		if ex, ok := ev.(*runtime.EventExceptionThrown); ok {
			zap.L().Debug("page exception", zap.String("detail", ex.ExceptionDetails.Error()))
		}
	})

	// Start the browser eagerly so a broken Chrome install fails here, not
	// on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	zap.L().Info("browser session started", zap.Bool("headless", opts.Headless))
	return &Chrome{allocCancel: allocCancel, ctx: ctx, cancel: cancel}, nil
}

// Close shuts the session and its allocator down.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

// run executes actions within both the session context and the caller's
// deadline/cancellation.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContexts(c.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	err := c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrapf(err, "browser: navigate %s", url)
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", eris.Wrap(err, "browser: current url")
	}
	return url, nil
}

const scrollFeedScript = `(() => {
	const feed = document.querySelector("` + selFeed + `");
	if (!feed) return false;
	feed.scrollTo(0, feed.scrollHeight);
	return true;
})()`

func (c *Chrome) ScrollFeed(ctx context.Context) error {
	var found bool
	if err := c.run(ctx, chromedp.Evaluate(scrollFeedScript, &found)); err != nil {
		return eris.Wrap(err, "browser: scroll feed")
	}
	if !found {
		return eris.Wrap(ErrElementNotFound, "results feed")
	}
	return nil
}

const feedEntriesScript = `(() =>
	Array.from(document.querySelectorAll("` + selFeedEntries + `"), a => ({
		name: a.getAttribute("aria-label") || "",
		link: a.href || "",
	}))
)()`

func (c *Chrome) FeedEntries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := c.run(ctx, chromedp.Evaluate(feedEntriesScript, &entries)); err != nil {
		return nil, eris.Wrap(err, "browser: feed entries")
	}
	return entries, nil
}

func (c *Chrome) ClickEntry(ctx context.Context, link string) error {
	script := `(() => {
		for (const a of document.querySelectorAll("` + selFeedEntries + `")) {
			if (a.href === ` + jsString(link) + `) { a.click(); return true; }
		}
		return false;
	})()`

	var clicked bool
	if err := c.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return eris.Wrapf(err, "browser: click %s", link)
	}
	if !clicked {
		// The feed re-rendered between enumeration and click.
		return eris.Wrapf(ErrStale, "entry %s vanished from feed", link)
	}
	return nil
}

func (c *Chrome) PlusCodeLabel(ctx context.Context) (string, error) {
	return c.attribute(ctx, selPlusCode, "aria-label")
}

func (c *Chrome) AddressLabel(ctx context.Context) (string, error) {
	return c.attribute(ctx, selAddress, "aria-label")
}

func (c *Chrome) CategoryText(ctx context.Context) (string, error) {
	script := `(() => {
		const el = document.querySelector("` + selCategory + `");
		return el ? el.textContent.trim() : "";
	})()`

	var text string
	if err := c.run(ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", eris.Wrap(err, "browser: category")
	}
	if text == "" {
		return "", eris.Wrap(ErrElementNotFound, selCategory)
	}
	return text, nil
}

// popularTimesScript walks the popular-times section by day container and
// collects every labelled element's aria-label, in display order.
const popularTimesScript = `(() => {
	const popular = document.querySelector("` + selPopularTimes + `");
	if (!popular) return { found: false, groups: [] };
	const groups = Array.from(popular.querySelectorAll("` + selDayGroup + `"), day =>
		Array.from(day.querySelectorAll("div[aria-label]"), el => el.getAttribute("aria-label") || "")
	);
	return { found: true, groups: groups };
})()`

func (c *Chrome) PopularTimesGroups(ctx context.Context) ([][]string, error) {
	var payload struct {
		Found  bool       `json:"found"`
		Groups [][]string `json:"groups"`
	}
	if err := c.run(ctx, chromedp.Evaluate(popularTimesScript, &payload)); err != nil {
		return nil, eris.Wrap(err, "browser: popular times")
	}
	if !payload.Found {
		return nil, eris.Wrap(ErrElementNotFound, selPopularTimes)
	}
	return payload.Groups, nil
}

func (c *Chrome) SingleResultName(ctx context.Context) (string, error) {
	var name string
	if err := c.run(ctx, chromedp.Text("h1", &name, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: single result name")
	}
	return name, nil
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: page source")
	}
	return html, nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	if err := c.run(ctx, chromedp.FullScreenshot(&png, 90)); err != nil {
		return nil, eris.Wrap(err, "browser: screenshot")
	}
	return png, nil
}

// attribute reads one attribute off the first selector match, mapping an
// absent element to ErrElementNotFound.
func (c *Chrome) attribute(ctx context.Context, selector, attr string) (string, error) {
	script := `(() => {
		const el = document.querySelector(` + jsString(selector) + `);
		return el ? (el.getAttribute(` + jsString(attr) + `) || "") : "";
	})()`

	var value string
	if err := c.run(ctx, chromedp.Evaluate(script, &value)); err != nil {
		return "", eris.Wrapf(err, "browser: attribute %s of %s", attr, selector)
	}
	if value == "" {
		return "", eris.Wrap(ErrElementNotFound, selector)
	}
	return value, nil
}
