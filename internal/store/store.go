// Package store journals workflow sessions and their stage events.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/model"
)

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Journal records what happened in a session. The workflow controller only
// depends on this half of the store.
type Journal interface {
	CreateSession(ctx context.Context) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	SaveStages(ctx context.Context, sessionID string, stages []model.Stage) error

	RecordEvent(ctx context.Context, ev model.StageEvent) (*model.StageEvent, error)
	ListEvents(ctx context.Context, sessionID string) ([]model.StageEvent, error)
}

// Store is a Journal with lifecycle management.
type Store interface {
	Journal

	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = eris.New("store: not found")

func encodeStages(stages []model.Stage) (string, error) {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.String())
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal stages")
	}
	return string(b), nil
}

func decodeStages(raw string) ([]model.Stage, error) {
	if raw == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal stages")
	}
	out := make([]model.Stage, 0, len(names))
	for _, n := range names {
		s, err := model.ParseStage(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
