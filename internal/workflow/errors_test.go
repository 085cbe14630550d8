package workflow

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/pipeline"
)

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"order", &OpError{Op: OpRisk, Err: &pipeline.StageOrderError{From: model.StageIngested, To: model.StageRiskIdentified, Missing: model.StageAggregated}},
			"Risk Identification unavailable: aggregated has not completed"},
		{"cancel", &OpError{Op: OpAnalyze, Err: eris.Wrap(params.ErrCancelled, "x")}, "Customer Analysis cancelled"},
		{"invalid", &OpError{Op: OpAggregate, Err: &params.InvalidError{Name: "period", Value: "week", Reason: "want one of month, quarter, year"}},
			`Aggregation Failed: invalid period "week" (want one of month, quarter, year)`},
		{"rejection", &OpError{Op: OpPredict, Err: &gateway.ServiceError{Kind: gateway.KindRejection, Message: "Not enough data"}},
			"Prediction Failed: Not enough data"},
		{"stale", &OpError{Op: OpVisualize, Err: ErrStaleResult}, "Visualization superseded by a newer request"},
		{"shape", &OpError{Op: OpIngest, Err: eris.Wrap(ErrInvalidResponse, "ingest")}, "Upload Failed: unexpected response from the analytics service"},
		{"other", &OpError{Op: OpIngest, Err: errors.New("disk full")}, "Upload Failed: disk full"},
		{"bare", errors.New("boom"), "Request Failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestOpError(t *testing.T) {
	t.Parallel()

	inner := &gateway.ServiceError{Endpoint: gateway.Trend, Kind: gateway.KindTransport, Message: "refused"}
	err := &OpError{Op: OpVisualize, Err: inner}
	assert.Equal(t, "workflow: visualize: gateway: trend: transport: refused", err.Error())
	assert.True(t, errors.Is(err, inner))
}

func TestParseOp(t *testing.T) {
	t.Parallel()

	op, ok := ParseOp("risk")
	assert.True(t, ok)
	assert.Equal(t, OpRisk, op)
	assert.Equal(t, model.StageAggregated, op.Requires())
	assert.Equal(t, model.StageRiskIdentified, op.Target())

	_, ok = ParseOp("status")
	assert.False(t, ok)
	assert.False(t, OpAnalyze.Advances())
	assert.Equal(t, model.StageAggregated, OpAnalyze.Requires())
	assert.Equal(t, "unknown", Op("unknown").Title())
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want model.EventStatus
	}{
		{"success", nil, model.EventSucceeded},
		{"cancelled", params.ErrCancelled, model.EventCancelled},
		{"invalid", &params.InvalidError{Name: "threshold", Value: "NaN", Reason: "not a finite number"}, model.EventRejected},
		{"stage order", &pipeline.StageOrderError{From: model.StageIngested, To: model.StageVisualized, Missing: model.StageAggregated}, model.EventRejected},
		{"stale trend", &OpError{Op: OpVisualize, Err: ErrStaleResult}, model.EventRejected},
		{"service", &gateway.ServiceError{Endpoint: gateway.Trend, Kind: gateway.KindTransport, Message: "down"}, model.EventFailed},
		{"other", errors.New("boom"), model.EventFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
