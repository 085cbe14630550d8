package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/churn-cli/internal/config"
	"github.com/sells-group/churn-cli/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	src := &mockSource{}
	src.On("ListSessions", mock.Anything, mock.Anything).Return([]model.Session{}, nil).Maybe()
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24, FailureRateThreshold: 0.25}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultLookback(t *testing.T) {
	checker := NewChecker(NewCollector(&mockSource{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.Equal(t, 24, checker.lookback())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	now := time.Now().UTC()
	src := &mockSource{}
	src.On("ListSessions", mock.Anything, mock.Anything).Return([]model.Session{{ID: "s-1", UpdatedAt: now}}, nil)
	src.On("ListEvents", mock.Anything, "s-1").Return([]model.StageEvent{
		{Operation: "analyze", Status: model.EventDegraded, CreatedAt: now},
	}, nil)

	cfg := config.MonitoringConfig{WebhookURL: srv.URL, FailureRateThreshold: 0.25}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	sent := checker.check(context.Background(), zap.NewNop(), 24)
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), hits.Load())
}
