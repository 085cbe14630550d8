package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/store"
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Call(ctx context.Context, endpoint gateway.Endpoint, payload any) (json.RawMessage, error) {
	args := m.Called(ctx, endpoint, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// --- Indicator Recorder ---

type recordingIndicator struct {
	mu     sync.Mutex
	labels []string
	active int
}

func (r *recordingIndicator) Start(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
	r.active++
}

func (r *recordingIndicator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
}

// --- Slow Journal ---

// slowJournal holds CreateSession until release is closed.
type slowJournal struct {
	store.Journal

	entered chan struct{}
	release chan struct{}
	once    sync.Once
	created atomic.Int32
}

func newSlowJournal() *slowJournal {
	return &slowJournal{entered: make(chan struct{}), release: make(chan struct{})}
}

func (j *slowJournal) CreateSession(context.Context) (*model.Session, error) {
	j.once.Do(func() { close(j.entered) })
	<-j.release
	j.created.Add(1)
	return &model.Session{ID: "sess-1"}, nil
}
