package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/churn-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	stages     TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stage_events (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	operation   TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stage_events_session ON stage_events(session_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, stages, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, "[]", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}
	return &model.Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, stages, created_at, updated_at FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: session %s", id)
	}
	return sess, err
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stages, created_at, updated_at FROM sessions ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		defaultLimit(filter.Limit), filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sessions")
}

func (s *SQLiteStore) SaveStages(ctx context.Context, sessionID string, stages []model.Stage) error {
	encoded, err := encodeStages(stages)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET stages = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save stages %s", sessionID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: session %s", sessionID)
	}
	return nil
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, ev model.StageEvent) (*model.StageEvent, error) {
	ev.ID = uuid.New().String()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_events (id, session_id, operation, status, message, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Operation, string(ev.Status), ev.Message, ev.DurationMs, ev.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert stage event")
	}
	return &ev, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string) ([]model.StageEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, operation, status, message, duration_ms, created_at FROM stage_events WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stage events")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StageEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate stage events")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var stages string
	if err := row.Scan(&sess.ID, &stages, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, eris.Wrap(err, "scan session")
	}
	decoded, err := decodeStages(stages)
	if err != nil {
		return nil, err
	}
	sess.Stages = decoded
	return &sess, nil
}

func scanEvent(row scannable) (*model.StageEvent, error) {
	var ev model.StageEvent
	var status string
	if err := row.Scan(&ev.ID, &ev.SessionID, &ev.Operation, &status, &ev.Message, &ev.DurationMs, &ev.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "scan stage event")
	}
	ev.Status = model.EventStatus(status)
	return &ev, nil
}
