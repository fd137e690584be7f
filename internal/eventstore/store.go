// Package eventstore persists match event logs to SQLite so tournaments can
// be replayed and analyzed after the fact. One database holds many sessions;
// a session holds many matches; a match holds its ordered event log.
package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spncrlkt/ballgame/internal/game"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrIncompleteTimeline refuses replay loads of aborted matches: their
	// logs stop mid-match and can never verify.
	ErrIncompleteTimeline = errors.New("match log incomplete, not replayable")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	label TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	match_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	level_id TEXT NOT NULL,
	seed INTEGER NOT NULL,
	profile_l TEXT NOT NULL,
	profile_r TEXT NOT NULL,
	score_l INTEGER NOT NULL,
	score_r INTEGER NOT NULL,
	winner TEXT NOT NULL,
	ticks INTEGER NOT NULL,
	complete INTEGER NOT NULL,
	saved_at TEXT NOT NULL,
	FOREIGN KEY(session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS events (
	match_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	tick INTEGER NOT NULL,
	code TEXT NOT NULL,
	player INTEGER NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY(match_id, seq),
	FOREIGN KEY(match_id) REFERENCES matches(match_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS events_match_tick ON events(match_id, tick);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginSession records a new tournament session and returns nothing but the
// error; the caller supplies the session ID.
func (s *Store) BeginSession(ctx context.Context, sessionID, label string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(session_id, label, started_at) VALUES (?, ?, ?)
`, sessionID, label, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// MatchRecord is one stored match's metadata.
type MatchRecord struct {
	MatchID   string
	SessionID string
	LevelID   string
	Seed      int64
	ProfileL  string
	ProfileR  string
	ScoreL    int
	ScoreR    int
	Winner    string
	Ticks     int64
	Complete  bool
}

// SaveMatch stores a match's metadata and full event log in one
// transaction. A partially written match never becomes visible.
func (s *Store) SaveMatch(ctx context.Context, rec MatchRecord, events []game.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save match: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO matches(match_id, session_id, level_id, seed, profile_l, profile_r,
	score_l, score_r, winner, ticks, complete, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.MatchID, rec.SessionID, rec.LevelID, rec.Seed, rec.ProfileL, rec.ProfileR,
		rec.ScoreL, rec.ScoreR, rec.Winner, rec.Ticks, boolToInt(rec.Complete),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events(match_id, seq, tick, code, player, payload) VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer stmt.Close()
	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, rec.MatchID, e.Seq, e.Tick, string(e.Code), int(e.Player), e.Payload); err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match: %w", err)
	}
	return nil
}

// LoadMatch returns a stored match's metadata.
func (s *Store) LoadMatch(ctx context.Context, matchID string) (MatchRecord, error) {
	var rec MatchRecord
	var complete int
	err := s.db.QueryRowContext(ctx, `
SELECT match_id, session_id, level_id, seed, profile_l, profile_r,
	score_l, score_r, winner, ticks, complete
FROM matches WHERE match_id = ?
`, matchID).Scan(&rec.MatchID, &rec.SessionID, &rec.LevelID, &rec.Seed,
		&rec.ProfileL, &rec.ProfileR, &rec.ScoreL, &rec.ScoreR, &rec.Winner,
		&rec.Ticks, &complete)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("load match: %w", err)
	}
	rec.Complete = complete != 0
	return rec, nil
}

// LoadEvents returns a stored match's full event log in append order.
func (s *Store) LoadEvents(ctx context.Context, matchID string) ([]game.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, tick, code, player, payload FROM events
WHERE match_id = ? ORDER BY seq
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var out []game.Event
	for rows.Next() {
		var e game.Event
		var code string
		var player int
		if err := rows.Scan(&e.Seq, &e.Tick, &code, &player, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.MatchID = matchID
		e.Code = game.EventCode(code)
		e.Player = game.PlayerID(player)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("match %s events: %w", matchID, ErrNotFound)
	}
	return out, nil
}

// LoadTimeline returns a completed match's event log for replay. Incomplete
// (aborted) matches are refused with ErrIncompleteTimeline.
func (s *Store) LoadTimeline(ctx context.Context, matchID string) ([]game.Event, error) {
	rec, err := s.LoadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !rec.Complete {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrIncompleteTimeline)
	}
	return s.LoadEvents(ctx, matchID)
}

// ListMatches returns the matches of a session, insertion-ordered.
func (s *Store) ListMatches(ctx context.Context, sessionID string) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, session_id, level_id, seed, profile_l, profile_r,
	score_l, score_r, winner, ticks, complete
FROM matches WHERE session_id = ? ORDER BY saved_at, match_id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var complete int
		if err := rows.Scan(&rec.MatchID, &rec.SessionID, &rec.LevelID, &rec.Seed,
			&rec.ProfileL, &rec.ProfileR, &rec.ScoreL, &rec.ScoreR, &rec.Winner,
			&rec.Ticks, &complete); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		rec.Complete = complete != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
