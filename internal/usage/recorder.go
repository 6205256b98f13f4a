// Package usage persists per-turn pipeline telemetry in a local SQLite
// database so routing and cache behavior can be inspected after the fact.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"noesis/internal/logging"
	"noesis/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	turn_id     TEXT    NOT NULL,
	at          TEXT    NOT NULL,
	route       TEXT    NOT NULL,
	difficulty  TEXT    NOT NULL,
	specialist  INTEGER NOT NULL,
	verifier    INTEGER NOT NULL,
	cache_hit   INTEGER NOT NULL,
	tools_used  INTEGER NOT NULL,
	streamed    INTEGER NOT NULL,
	latency_ms  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_route ON turns(route);
`

// Recorder implements pipeline.UsageSink on top of SQLite. Recording is
// best effort: storage failures are logged, never surfaced to the turn.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the telemetry database at path and ensures the
// schema exists.
func Open(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create usage dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	// The pipeline records from one goroutine per turn; a single
	// connection sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init usage schema: %w", err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

// Record inserts one turn row.
func (r *Recorder) Record(turn pipeline.TurnRecord) {
	_, err := r.db.Exec(
		`INSERT INTO turns (turn_id, at, route, difficulty, specialist, verifier, cache_hit, tools_used, streamed, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		r.now().UTC().Format(time.RFC3339),
		string(turn.Route),
		string(turn.Difficulty),
		boolInt(turn.UseSpecialist),
		boolInt(turn.UseVerifier),
		boolInt(turn.CacheHit),
		boolInt(turn.ToolsUsed),
		boolInt(turn.Streamed),
		turn.Latency.Milliseconds(),
	)
	if err != nil {
		logging.Get(logging.CategoryUsage).Warn("record turn failed: %v", err)
	}
}

// Summary aggregates the recorded turns.
type Summary struct {
	Turns           int
	CacheHits       int
	SpecialistTurns int
	VerifierTurns   int
	ToolTurns       int
	StreamedTurns   int
	AvgLatency      time.Duration
	ByRoute         map[string]int
}

// Summarize computes totals across all recorded turns.
func (r *Recorder) Summarize(ctx context.Context) (Summary, error) {
	s := Summary{ByRoute: make(map[string]int)}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cache_hit), 0),
		       COALESCE(SUM(specialist), 0),
		       COALESCE(SUM(verifier), 0),
		       COALESCE(SUM(tools_used), 0),
		       COALESCE(SUM(streamed), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM turns`)
	var avgMs float64
	if err := row.Scan(&s.Turns, &s.CacheHits, &s.SpecialistTurns, &s.VerifierTurns, &s.ToolTurns, &s.StreamedTurns, &avgMs); err != nil {
		return Summary{}, fmt.Errorf("summarize turns: %w", err)
	}
	s.AvgLatency = time.Duration(avgMs) * time.Millisecond

	rows, err := r.db.QueryContext(ctx, `SELECT route, COUNT(*) FROM turns GROUP BY route`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize routes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var route string
		var n int
		if err := rows.Scan(&route, &n); err != nil {
			return Summary{}, fmt.Errorf("scan route row: %w", err)
		}
		s.ByRoute[route] = n
	}
	return s, rows.Err()
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
