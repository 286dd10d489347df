// Package monitoring tracks per-run scrape counters for the run history.
package monitoring

import "time"

// Stats is a point-in-time view of one scrape run's progress.
type Stats struct {
	LocationsTotal   int `json:"locations_total"`
	LocationsScraped int `json:"locations_scraped"`
	LocationsFailed  int `json:"locations_failed"`
	PlacesScraped    int `json:"places_scraped"`
	PlacesSkipped    int `json:"places_skipped"`
	DriverRestarts   int `json:"driver_restarts"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Collector accumulates counters across a single-threaded scrape run.
type Collector struct {
	stats   Stats
	started time.Time
}

// NewCollector starts a collector for a run over total locations.
func NewCollector(total int) *Collector {
	return &Collector{
		stats:   Stats{LocationsTotal: total},
		started: time.Now(),
	}
}

// LocationScraped records one search term fully processed.
func (c *Collector) LocationScraped() { c.stats.LocationsScraped++ }

// LocationFailed records one search term abandoned after an error.
func (c *Collector) LocationFailed() { c.stats.LocationsFailed++ }

// PlacesScraped records n newly extracted places.
func (c *Collector) PlacesScraped(n int) { c.stats.PlacesScraped += n }

// PlacesSkipped records n places already present in the store.
func (c *Collector) PlacesSkipped(n int) { c.stats.PlacesSkipped += n }

// DriverRestarted records a discarded browser session.
func (c *Collector) DriverRestarted() { c.stats.DriverRestarts++ }

// Snapshot returns the counters with elapsed time filled in.
func (c *Collector) Snapshot() Stats {
	s := c.stats
	s.ElapsedSeconds = time.Since(c.started).Seconds()
	return s
}
