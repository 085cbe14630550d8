package monitoring

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/store"
)

// --- Journal Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSource) ListEvents(ctx context.Context, sessionID string) ([]model.StageEvent, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StageEvent), args.Error(1)
}
