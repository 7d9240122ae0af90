package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// ErrNotFound is returned when no archived run matches.
var ErrNotFound = errors.New("run not found")

// Run is one archived generation run.
type Run struct {
	ID        string
	Date      string
	CreatedAt time.Time
	Generated int
	Fallback  int

	// Payload is nil in List results.
	Payload *types.DailyPayload
}

// NewRun describes payload as a new run with a fresh id.
func NewRun(payload *types.DailyPayload) Run {
	generated := payload.GeneratedCount()
	return Run{
		ID:        uuid.NewString(),
		Date:      payload.Date,
		CreatedAt: time.Now().UTC(),
		Generated: generated,
		Fallback:  len(types.Signs) + 1 - generated,
		Payload:   payload,
	}
}

// Archive keeps the history of runs in SQLite. It is write-mostly; the
// assembler never reads it back.
type Archive struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	a := &Archive{db: db, path: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("Opened archive %s", path)
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		generated INTEGER NOT NULL,
		fallback INTEGER NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date, created_at);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}

// Put stores a run.
func (a *Archive) Put(ctx context.Context, run Run) error {
	if run.Payload == nil {
		return fmt.Errorf("run %s has no payload", run.ID)
	}
	body, err := json.Marshal(run.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO runs (id, date, created_at, generated, fallback, body) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Generated, run.Fallback, string(body))
	if err != nil {
		logging.StoreError("Archive put %s failed: %v", run.ID, err)
		return fmt.Errorf("failed to archive run: %w", err)
	}
	logging.StoreDebug("Archived run %s for %s", run.ID, run.Date)
	return nil
}

// Get returns the latest run for a date.
func (a *Archive) Get(ctx context.Context, dateKey string) (*Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	row := a.db.QueryRowContext(ctx,
		`SELECT id, date, created_at, generated, fallback, body FROM runs
		 WHERE date = ? ORDER BY created_at DESC LIMIT 1`, dateKey)

	var (
		run     Run
		created string
		body    string
	)
	if err := row.Scan(&run.ID, &run.Date, &created, &run.Generated, &run.Fallback, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", dateKey, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if err := run.setCreated(created); err != nil {
		return nil, err
	}

	var payload types.DailyPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode archived payload: %w", err)
	}
	run.Payload = &payload
	return &run, nil
}

// List returns up to limit runs, newest first. Payloads are not loaded.
func (a *Archive) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 30
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, date, created_at, generated, fallback FROM runs
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			created string
		)
		if err := rows.Scan(&run.ID, &run.Date, &created, &run.Generated, &run.Fallback); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := run.setCreated(created); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Run) setCreated(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("bad created_at %q: %w", s, err)
	}
	r.CreatedAt = t
	return nil
}
