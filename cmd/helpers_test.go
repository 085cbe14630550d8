package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sells-group/churn-cli/internal/config"
	"github.com/sells-group/churn-cli/internal/gateway"
)

const (
	ingestBody    = `{"success":true,"message":"Loaded","data":{"totalRows":1200,"totalColumns":8},"customers":["C1","C2"]}`
	aggregateBody = `{"success":true,"message":"Aggregated by Month"}`
	trendBody     = `[{"period_dt":"2024-01-01","total_tons":12.5},{"period_dt":"2024-02-01","total_tons":9.25}]`
	riskBody      = `{"columns":["clientKey","drop_pct","drop_value"],"rows":[{"clientKey":"C1","drop_pct":42.6,"drop_value":3.142}]}`
	analysisBody  = `{"customer_id":"C1","monthly_data":[{"period":"2024-03","quantity":5,"purchase_count":2}],"quarterly_data":[],"risk_factors":[]}`
	predictBody   = `{"evaluation":{"report":{"accuracy":0.8731,"1":{"precision":0.72,"recall":0.61}}},"predictions":[{"clientKey":"C1","churn_probability":0.81}]}`
)

// stubGateway answers each endpoint with a canned body or error.
type stubGateway struct {
	mu     sync.Mutex
	bodies map[gateway.Endpoint]string
	errs   map[gateway.Endpoint]error
	calls  []gateway.Endpoint
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		bodies: map[gateway.Endpoint]string{
			gateway.Ingest:           ingestBody,
			gateway.Aggregate:        aggregateBody,
			gateway.Trend:            trendBody,
			gateway.AtRisk:           riskBody,
			gateway.CustomerAnalysis: analysisBody,
			gateway.TrainAndPredict:  predictBody,
		},
		errs: map[gateway.Endpoint]error{},
	}
}

func (s *stubGateway) fail(ep gateway.Endpoint, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[ep] = err
}

func (s *stubGateway) Call(_ context.Context, ep gateway.Endpoint, _ any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ep)
	if err := s.errs[ep]; err != nil {
		return nil, err
	}
	return json.RawMessage(s.bodies[ep]), nil
}

func (s *stubGateway) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func rejection(ep gateway.Endpoint, msg string) error {
	return &gateway.ServiceError{Endpoint: ep, Kind: gateway.KindRejection, StatusCode: 422, Message: msg}
}

// useConfig installs a config without a journal and restores the previous
// one when the test ends.
func useConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	prev := cfg
	c := &config.Config{
		Service: config.ServiceConfig{BaseURL: "http://localhost:5000/api", TimeoutSecs: 5},
		Retry:   config.RetryConfig{MaxAttempts: 1},
		Store:   config.StoreConfig{Driver: "none"},
		Server:  config.ServerConfig{Port: 8080},
		Session: config.SessionConfig{DefaultDataset: "ventas_anonimizadas.csv", DefaultThresholdPct: 30},
	}
	if mutate != nil {
		mutate(c)
	}
	cfg = c
	t.Cleanup(func() { cfg = prev })
}
