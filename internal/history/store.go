// Package history persists finished games so players can review their record.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/tictactoe/internal/game"
)

var (
	// ErrDuplicateMatch is returned when a match ID is recorded twice.
	ErrDuplicateMatch = errors.New("match already recorded")
	// ErrInvalidOutcome is returned for outcomes other than won, lost, draw or aborted.
	ErrInvalidOutcome = errors.New("invalid outcome")
)

// Match is one game as seen by the local player.
type Match struct {
	ID        string
	Server    string
	Token     string
	Winner    string // "" when aborted, "NONE" for a draw
	Outcome   game.Outcome
	Moves     int
	StartedAt time.Time
	EndedAt   time.Time
}

// Stats counts matches by outcome.
type Stats struct {
	Won     int
	Lost    int
	Draw    int
	Aborted int
}

// Total is the number of recorded matches.
func (s Stats) Total() int {
	return s.Won + s.Lost + s.Draw + s.Aborted
}

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens the configured database and creates the schema if needed.
func Open(cfg Config) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var (
		db  *sql.DB
		err error
	)
	switch dialect.(type) {
	case *PostgresDialect:
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		db, err = sql.Open(dialect.DriverName(), cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err = sql.Open(dialect.DriverName(), cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init statement %q failed: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Timestamps are stored as unix milliseconds so both dialects share one schema.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			server TEXT NOT NULL,
			token TEXT NOT NULL DEFAULT '',
			winner TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			moves INTEGER NOT NULL DEFAULT 0,
			started_at BIGINT NOT NULL,
			ended_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ended_at ON matches(ended_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Record stores a match, assigning an ID when it has none, and returns the
// stored value.
func (s *Store) Record(m Match) (Match, error) {
	switch m.Outcome {
	case game.OutcomeWon, game.OutcomeLost, game.OutcomeDraw, game.OutcomeAborted:
	default:
		return Match{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, m.Outcome)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.EndedAt.IsZero() {
		m.EndedAt = time.Now()
	}
	if m.StartedAt.IsZero() {
		m.StartedAt = m.EndedAt
	}

	_, err := s.db.Exec(s.qb.Build(
		`INSERT INTO matches (id, server, token, winner, outcome, moves, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.Server, m.Token, m.Winner, string(m.Outcome), m.Moves,
		m.StartedAt.UnixMilli(), m.EndedAt.UnixMilli())
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return Match{}, fmt.Errorf("%w: %s", ErrDuplicateMatch, m.ID)
		}
		return Match{}, fmt.Errorf("failed to record match: %w", err)
	}

	m.StartedAt = time.UnixMilli(m.StartedAt.UnixMilli())
	m.EndedAt = time.UnixMilli(m.EndedAt.UnixMilli())
	return m, nil
}

// Recent returns up to limit matches, newest first.
func (s *Store) Recent(limit int) ([]Match, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(s.qb.Build(
		`SELECT id, server, token, winner, outcome, moves, started_at, ended_at
		 FROM matches ORDER BY ended_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m                 Match
			outcome           string
			started, finished int64
		)
		if err := rows.Scan(&m.ID, &m.Server, &m.Token, &m.Winner, &outcome, &m.Moves, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Outcome = game.Outcome(outcome)
		m.StartedAt = time.UnixMilli(started)
		m.EndedAt = time.UnixMilli(finished)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Stats returns match counts by outcome.
func (s *Store) Stats() (Stats, error) {
	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM matches GROUP BY outcome`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats: %w", err)
		}
		switch game.Outcome(outcome) {
		case game.OutcomeWon:
			st.Won = n
		case game.OutcomeLost:
			st.Lost = n
		case game.OutcomeDraw:
			st.Draw = n
		case game.OutcomeAborted:
			st.Aborted = n
		}
	}
	return st, rows.Err()
}
