package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/placetimes/internal/monitoring"
)

// RunStatus tracks a scrape run's lifecycle.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one recorded scrape run.
type Run struct {
	ID            string            `json:"id"`
	LocationsFile string            `json:"locations_file"`
	OutFile       string            `json:"out_file"`
	Status        RunStatus         `json:"status"`
	Stats         *monitoring.Stats `json:"stats,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

// RunStore keeps scrape run history in SQLite.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens (and creates if needed) the run-history database at
// dsn and configures WAL mode.
func OpenRunStore(dsn string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runstore: exec %s", pragma)
		}
	}
	return &RunStore{db: db}, nil
}

const runsMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	locations_file TEXT NOT NULL,
	out_file       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	stats          TEXT,
	started_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate applies the schema.
func (s *RunStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, runsMigration)
	return eris.Wrap(err, "runstore: migrate")
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new running row and returns it.
func (s *RunStore) CreateRun(ctx context.Context, locationsFile, outFile string) (*Run, error) {
	run := &Run{
		ID:            uuid.New().String(),
		LocationsFile: locationsFile,
		OutFile:       outFile,
		Status:        RunStatusRunning,
		StartedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, locations_file, out_file, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.LocationsFile, run.OutFile, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: insert run")
	}
	return run, nil
}

// FinishRun records the final status and counters for a run.
func (s *RunStore) FinishRun(ctx context.Context, runID string, status RunStatus, stats monitoring.Stats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "runstore: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, finished_at = ? WHERE id = ?`,
		string(status), string(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "runstore: update run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runstore: rows affected")
	}
	if n == 0 {
		return eris.Errorf("runstore: run %s not found", runID)
	}
	return nil
}

// ListRuns returns runs newest-first, up to limit (0 means 50).
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, locations_file, out_file, status, stats, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runstore: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			status     string
			statsJSON  sql.NullString
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.LocationsFile, &run.OutFile, &status, &statsJSON, &run.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "runstore: scan run")
		}
		run.Status = RunStatus(status)
		if statsJSON.Valid && statsJSON.String != "" {
			var stats monitoring.Stats
			if err := json.Unmarshal([]byte(statsJSON.String), &stats); err != nil {
				return nil, eris.Wrapf(err, "runstore: parse stats for %s", run.ID)
			}
			run.Stats = &stats
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "runstore: iterate runs")
}
