package workflow

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/params"
)

// Op names a controller operation. The names double as REPL commands and
// HTTP route segments.
type Op string

const (
	OpIngest    Op = "ingest"
	OpAggregate Op = "aggregate"
	OpVisualize Op = "visualize"
	OpRisk      Op = "risk"
	OpPredict   Op = "predict"
	OpAnalyze   Op = "analyze"
)

// Ops lists every operation in workflow order.
var Ops = []Op{OpIngest, OpAggregate, OpVisualize, OpRisk, OpPredict, OpAnalyze}

type opInfo struct {
	title    string
	endpoint gateway.Endpoint
	target   model.Stage
	requires model.Stage
}

var opTable = map[Op]opInfo{
	OpIngest:    {"Upload", gateway.Ingest, model.StageIngested, model.StageIdle},
	OpAggregate: {"Aggregation", gateway.Aggregate, model.StageAggregated, model.StageIngested},
	OpVisualize: {"Visualization", gateway.Trend, model.StageVisualized, model.StageAggregated},
	OpRisk:      {"Risk Identification", gateway.AtRisk, model.StageRiskIdentified, model.StageAggregated},
	OpPredict:   {"Prediction", gateway.TrainAndPredict, model.StagePredicted, model.StageAggregated},
	// Analysis queries the service's aggregated period tables, so it needs
	// Aggregated, but it is not a stage and never advances the pipeline.
	OpAnalyze: {"Customer Analysis", gateway.CustomerAnalysis, model.StageAggregated, model.StageAggregated},
}

// ParseOp resolves an operation name.
func ParseOp(name string) (Op, bool) {
	op := Op(name)
	_, ok := opTable[op]
	return op, ok
}

// Title is the label used in user-facing messages.
func (o Op) Title() string {
	if info, ok := opTable[o]; ok {
		return info.title
	}
	return string(o)
}

// Requires returns the stage that must be reached before o may run.
func (o Op) Requires() model.Stage { return opTable[o].requires }

// Target returns the stage o advances to on success.
func (o Op) Target() model.Stage { return opTable[o].target }

// Advances reports whether a successful o moves the pipeline.
func (o Op) Advances() bool { return o != OpAnalyze }

// Invoke runs op with parameters from src and returns its result: a
// model.DatasetSummary, the aggregation message, a model.TrendSeries, a
// model.RiskSet, a model.PredictionResult or an AnalysisResult.
func (c *Controller) Invoke(ctx context.Context, op Op, src params.Source) (any, error) {
	switch op {
	case OpIngest:
		return c.Ingest(ctx, src)
	case OpAggregate:
		return c.Aggregate(ctx, src)
	case OpVisualize:
		return c.Visualize(ctx, src)
	case OpRisk:
		return c.IdentifyRisk(ctx, src)
	case OpPredict:
		return c.PredictRisk(ctx, src)
	case OpAnalyze:
		return c.AnalyzeCustomer(ctx, src)
	default:
		return nil, eris.Errorf("workflow: unknown operation %q", op)
	}
}
