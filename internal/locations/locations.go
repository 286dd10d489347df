// Package locations manages the input list of search terms and its
// progress write-back.
package locations

import (
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Row is one line of the locations file. NPlaces doubles as the
// processed marker: a non-nil value means the row was scraped in an
// earlier run.
type Row struct {
	Name      string `csv:"name"`
	NPlaces   *int   `csv:"n_places,omitempty"`
	ScrapedAt string `csv:"scraped_at,omitempty"`
}

// List holds the locations file contents for a run.
type List struct {
	Rows []Row
	path string
}

// Load reads the locations CSV at path.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "locations: read %s", path)
	}

	var rows []Row
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "locations: parse %s", path)
	}
	return &List{Rows: rows, path: path}, nil
}

// Pending returns the deduplicated search terms still to scrape: rows
// without an n_places marker whose name survives normalization. Names are
// NFC-normalized and trimmed so visually identical terms collapse to one.
func (l *List) Pending() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range l.Rows {
		name := norm.NFC.String(strings.TrimSpace(row.Name))
		if name == "" || strings.EqualFold(name, "nan") {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if row.NPlaces != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// MarkScraped records the place count and timestamp against every row
// matching name (after normalization).
func (l *List) MarkScraped(name string, nPlaces int, at time.Time) {
	target := norm.NFC.String(strings.TrimSpace(name))
	stamp := at.Format("2006-01-02 15:04:05")
	for i := range l.Rows {
		if norm.NFC.String(strings.TrimSpace(l.Rows[i].Name)) != target {
			continue
		}
		n := nPlaces
		l.Rows[i].NPlaces = &n
		l.Rows[i].ScrapedAt = stamp
	}
}

// Save writes the rows back over the locations file.
func (l *List) Save() error {
	data, err := csvutil.Marshal(l.Rows)
	if err != nil {
		return eris.Wrap(err, "locations: marshal rows")
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "locations: write %s", l.path)
	}
	return nil
}
