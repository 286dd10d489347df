package main

import (
	"context"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/placetimes/internal/browser"
	"github.com/sells-group/placetimes/internal/discovery"
	"github.com/sells-group/placetimes/internal/extract"
	"github.com/sells-group/placetimes/internal/locations"
	"github.com/sells-group/placetimes/internal/monitoring"
	"github.com/sells-group/placetimes/internal/resilience"
	"github.com/sells-group/placetimes/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape popular times for every pending location",
	Long: `Reads the locations file, searches each pending name, and extracts every
unseen place on the result page into the feature collection.

Rows already carrying an n_places value are treated as processed and
skipped. The collection is saved after every place, so an interrupted run
loses at most the place in flight. Names that error are appended to the
skip log for manual follow-up.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "scrape"))

		if v, _ := cmd.Flags().GetString("locations"); v != "" {
			cfg.Scrape.LocationsFile = v
		}
		if v, _ := cmd.Flags().GetString("out"); v != "" {
			cfg.Scrape.OutFile = v
		}

		list, err := locations.Load(cfg.Scrape.LocationsFile)
		if err != nil {
			return err
		}
		pending := list.Pending()
		if len(pending) == 0 {
			log.Info("nothing to scrape, all locations processed")
			return nil
		}
		log.Info("locations loaded",
			zap.Int("total", len(list.Rows)),
			zap.Int("pending", len(pending)),
		)

		features := store.NewFeatureStore()
		if err := features.Load(cfg.Scrape.OutFile); err != nil {
			return eris.Wrap(err, "scrape: load feature collection")
		}

		runs, err := store.OpenRunStore(cfg.Store.RunsPath)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck
		if err := runs.Migrate(ctx); err != nil {
			return err
		}
		run, err := runs.CreateRun(ctx, cfg.Scrape.LocationsFile, cfg.Scrape.OutFile)
		if err != nil {
			return err
		}

		env := &scrapeEnv{
			list:      list,
			pending:   pending,
			features:  features,
			skip:      locations.NewSkipLog(cfg.Scrape.SkipLogFile),
			collector: monitoring.NewCollector(len(pending)),
			limiter:   rate.NewLimiter(rate.Every(time.Duration(cfg.Scrape.MinIntervalSecs)*time.Second), 1),
			newDriver: func() (browser.Driver, error) {
				return browser.NewChrome(browser.Options{
					Headless:     cfg.Browser.Headless,
					WindowWidth:  cfg.Browser.WindowWidth,
					WindowHeight: cfg.Browser.WindowHeight,
					UserAgent:    cfg.Browser.UserAgent,
				})
			},
			searchBaseURL: cfg.Scrape.SearchBaseURL,
			outFile:       cfg.Scrape.OutFile,
			artifactsDir:  cfg.Scrape.ArtifactsDir,
			pageTimeout:   time.Duration(cfg.Scrape.PageTimeoutSecs) * time.Second,
			discovery: discovery.Options{
				TargetPlaces: cfg.Scrape.TargetPlaces,
				MaxScrolls:   cfg.Scrape.MaxScrolls,
			},
			retry: retryConfig(cfg.Scrape.RetryAttempts),
		}

		loopErr := runScrapeLoop(ctx, env)

		stats := env.collector.Snapshot()
		status := store.RunStatusComplete
		switch {
		case loopErr != nil:
			status = store.RunStatusFailed
		case ctx.Err() != nil:
			status = store.RunStatusInterrupted
			log.Info("interrupted, flushing accumulated results")
		}
		// Record the run outcome even when the loop context is gone.
		if err := runs.FinishRun(context.WithoutCancel(ctx), run.ID, status, stats); err != nil {
			log.Error("could not record run outcome", zap.Error(err))
		}

		log.Info("scrape finished",
			zap.String("status", string(status)),
			zap.Int("locations_scraped", stats.LocationsScraped),
			zap.Int("locations_failed", stats.LocationsFailed),
			zap.Int("places_scraped", stats.PlacesScraped),
			zap.Int("places_skipped", stats.PlacesSkipped),
		)
		return loopErr
	},
}

func init() {
	scrapeCmd.Flags().String("locations", "", "locations CSV file (default from config)")
	scrapeCmd.Flags().String("out", "", "output GeoJSON file (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}

func retryConfig(attempts int) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.ShouldRetry = browser.IsStale
	return cfg
}

// scrapeEnv carries the scrape loop's collaborators so the loop itself can
// run against fakes.
type scrapeEnv struct {
	list      *locations.List
	pending   []string
	features  *store.FeatureStore
	skip      *locations.SkipLog
	collector *monitoring.Collector
	limiter   *rate.Limiter
	newDriver func() (browser.Driver, error)

	searchBaseURL string
	outFile       string
	artifactsDir  string
	pageTimeout   time.Duration
	discovery     discovery.Options
	retry         resilience.RetryConfig
}

// searchURL builds the search address for one location name.
func (env *scrapeEnv) searchURL(name string) string {
	return env.searchBaseURL + url.QueryEscape(name) + "?hl=en"
}

// runScrapeLoop visits every pending location sequentially. An interrupt
// stops the loop between locations and the accumulated results are flushed
// by the deferred saves; only a driver that cannot be restarted aborts the
// run with an error.
func runScrapeLoop(ctx context.Context, env *scrapeEnv) error {
	log := zap.L().With(zap.String("command", "scrape"))

	drv, err := env.newDriver()
	if err != nil {
		return eris.Wrap(err, "scrape: start driver")
	}
	defer func() { drv.Close() }() //nolint:errcheck

	// Flush whatever accumulated, interrupt or not.
	defer func() {
		if err := env.features.Save(env.outFile); err != nil {
			log.Error("could not flush feature collection", zap.Error(err))
		}
		if err := env.list.Save(); err != nil {
			log.Error("could not flush locations file", zap.Error(err))
		}
	}()

	for _, name := range env.pending {
		if ctx.Err() != nil {
			break
		}
		if err := env.limiter.Wait(ctx); err != nil {
			break
		}

		log.Info("searching location", zap.String("name", name))

		stats, err := env.scrapeLocation(ctx, drv, name)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			env.collector.LocationFailed()
			log.Error("location failed",
				zap.String("name", name),
				zap.Error(err),
			)
			env.dumpArtifacts(drv, name)
			if logErr := env.skip.Append(name); logErr != nil {
				log.Error("could not append skip log", zap.Error(logErr))
			}

			if browser.IsFatal(err) {
				drv.Close() //nolint:errcheck
				drv, err = env.newDriver()
				if err != nil {
					return eris.Wrap(err, "scrape: restart driver")
				}
				env.collector.DriverRestarted()
				log.Warn("driver session restarted")
			}
			continue
		}

		env.collector.LocationScraped()
		env.collector.PlacesScraped(stats.Extracted)
		env.collector.PlacesSkipped(stats.Skipped)

		env.list.MarkScraped(name, stats.Entries, time.Now())
		if err := env.list.Save(); err != nil {
			log.Error("could not update locations file", zap.Error(err))
		}

		log.Info("location done",
			zap.String("name", name),
			zap.Int("entries", stats.Entries),
			zap.Int("extracted", stats.Extracted),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}

	return nil
}

// scrapeLocation searches one name and extracts its result page.
func (env *scrapeEnv) scrapeLocation(ctx context.Context, drv browser.Driver, name string) (extract.PageStats, error) {
	pageCtx, cancel := context.WithTimeout(ctx, env.pageTimeout)
	defer cancel()

	if err := drv.Navigate(pageCtx, env.searchURL(name)); err != nil {
		return extract.PageStats{}, err
	}

	ex := extract.New(drv, extract.Config{
		OutFile:   env.outFile,
		Discovery: env.discovery,
		Retry:     env.retry,
	})
	return ex.Page(pageCtx, env.features, func(placeName string, _ error) {
		env.dumpArtifacts(drv, placeName)
		if err := env.skip.Append(placeName); err != nil {
			zap.L().Error("could not append skip log", zap.Error(err))
		}
	})
}

// dumpArtifacts captures postmortem output on its own short deadline so it
// still works when the scrape context is already cancelled.
func (env *scrapeEnv) dumpArtifacts(drv browser.Driver, placeName string) {
	dumpCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := browser.DumpArtifacts(dumpCtx, drv, env.artifactsDir, placeName); err != nil {
		zap.L().Warn("could not dump error artifacts",
			zap.String("place", placeName),
			zap.Error(err),
		)
	}
}
