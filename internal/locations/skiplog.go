package locations

import (
	"os"

	"github.com/rotisserie/eris"
)

// SkipLog is the append-only list of place names that errored during
// scraping, one per line, kept for manual follow-up.
type SkipLog struct {
	path string
}

// NewSkipLog points at (and lazily creates) the log file at path.
func NewSkipLog(path string) *SkipLog {
	return &SkipLog{path: path}
}

// Append records one skipped name.
func (s *SkipLog) Append(name string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "skiplog: open %s", s.path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.WriteString(name + "\n"); err != nil {
		return eris.Wrapf(err, "skiplog: append %s", s.path)
	}
	return nil
}
