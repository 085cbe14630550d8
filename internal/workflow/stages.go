package workflow

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/reconcile"
)

// Parameter names understood by the stage operations.
const (
	ParamDataset       = "dataset"
	ParamPeriod        = "period"
	ParamCustomPeriod  = "custom_period"
	ParamCustomerID    = "customer_id"
	ParamStart         = "start"
	ParamEnd           = "end"
	ParamChart         = "chart"
	ParamThresholdType = "threshold_type"
	ParamThreshold     = "threshold"
)

// Ingest uploads a dataset and records its summary and customer roster. A
// new dataset invalidates every stage computed on the previous one.
func (c *Controller) Ingest(ctx context.Context, src params.Source) (model.DatasetSummary, error) {
	started := time.Now()
	res, stages, err := c.ingest(ctx, src)
	return res.Summary, c.finish(ctx, OpIngest, started, stages, err)
}

func (c *Controller) ingest(ctx context.Context, src params.Source) (ingestResult, []model.Stage, error) {
	if err := c.gate(OpIngest); err != nil {
		return ingestResult{}, nil, err
	}
	dataset, err := params.String(ctx, src, params.Spec{
		Name:    ParamDataset,
		Prompt:  "Enter the CSV file path",
		Default: c.defaults.Dataset,
	})
	if err != nil {
		return ingestResult{}, nil, err
	}

	var res ingestResult
	err = c.withBusy(OpIngest, func() error {
		raw, err := c.call(ctx, OpIngest, map[string]any{"filePath": dataset})
		if err != nil {
			return err
		}
		res, err = decodeIngest(raw)
		return err
	})
	if err != nil {
		return ingestResult{}, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipe.Invalidate(model.StageIngested)
	if err := c.pipe.Advance(model.StageIngested); err != nil {
		return ingestResult{}, nil, err
	}
	summary := res.Summary
	c.st = state{summary: &summary, customers: res.Customers}
	return res, c.pipe.Reached(), nil
}

// Aggregate asks the service to aggregate purchases per customer and period.
func (c *Controller) Aggregate(ctx context.Context, src params.Source) (string, error) {
	started := time.Now()
	msg, stages, err := c.aggregate(ctx, src)
	return msg, c.finish(ctx, OpAggregate, started, stages, err)
}

func (c *Controller) aggregate(ctx context.Context, src params.Source) (string, []model.Stage, error) {
	if err := c.gate(OpAggregate); err != nil {
		return "", nil, err
	}
	raw, err := params.String(ctx, src, params.Spec{
		Name:    ParamPeriod,
		Prompt:  "Enter the aggregation period",
		Default: string(model.PeriodMonth),
		Choices: []string{string(model.PeriodMonth), string(model.PeriodQuarter), string(model.PeriodYear), string(model.PeriodCustom)},
	})
	if err != nil {
		return "", nil, err
	}
	period, err := model.ParsePeriod(raw)
	if err != nil {
		return "", nil, &params.InvalidError{Name: ParamPeriod, Value: raw, Reason: err.Error()}
	}
	payload := map[string]any{"period": string(period)}
	if period == model.PeriodCustom {
		custom, err := params.String(ctx, src, params.Spec{
			Name:     ParamCustomPeriod,
			Prompt:   "Enter the custom period alias (e.g. 2W)",
			Required: true,
		})
		if err != nil {
			return "", nil, err
		}
		payload["customPeriod"] = custom
	}

	var msg string
	err = c.withBusy(OpAggregate, func() error {
		raw, err := c.call(ctx, OpAggregate, payload)
		if err != nil {
			return err
		}
		msg = decodeMessage(raw)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	stages, err := c.commit(OpAggregate, func(st *state) error {
		st.aggregation = msg
		st.period = period
		return nil
	})
	return msg, stages, err
}

// Visualize fetches a customer's purchase trend. Only the latest request's
// response is applied; an older one that resolves late is discarded with
// ErrStaleResult.
func (c *Controller) Visualize(ctx context.Context, src params.Source) (model.TrendSeries, error) {
	started := time.Now()
	series, stages, err := c.visualize(ctx, src)
	return series, c.finish(ctx, OpVisualize, started, stages, err)
}

func (c *Controller) visualize(ctx context.Context, src params.Source) (model.TrendSeries, []model.Stage, error) {
	if err := c.gate(OpVisualize); err != nil {
		return model.TrendSeries{}, nil, err
	}
	id, err := params.String(ctx, src, params.Spec{Name: ParamCustomerID, Prompt: "Enter the customer ID", Required: true})
	if err != nil {
		return model.TrendSeries{}, nil, err
	}
	start, err := monthParam(ctx, src, ParamStart, "Start date (YYYY-MM), optional")
	if err != nil {
		return model.TrendSeries{}, nil, err
	}
	end, err := monthParam(ctx, src, ParamEnd, "End date (YYYY-MM), optional")
	if err != nil {
		return model.TrendSeries{}, nil, err
	}
	rawChart, err := params.String(ctx, src, params.Spec{
		Name:    ParamChart,
		Prompt:  "Chart type",
		Default: string(model.ChartLine),
		Choices: []string{string(model.ChartLine), string(model.ChartBar)},
	})
	if err != nil {
		return model.TrendSeries{}, nil, err
	}
	chart, err := model.ParseChartKind(rawChart)
	if err != nil {
		return model.TrendSeries{}, nil, &params.InvalidError{Name: ParamChart, Value: rawChart, Reason: err.Error()}
	}

	payload := map[string]any{"customerId": id, "chartType": string(chart)}
	if start != "" {
		payload["startDate"] = start
	}
	if end != "" {
		payload["endDate"] = end
	}

	c.mu.Lock()
	c.trendIssued++
	seq := c.trendIssued
	c.mu.Unlock()

	var points []model.TrendPoint
	err = c.withBusy(OpVisualize, func() error {
		raw, err := c.read(ctx, OpVisualize, payload)
		if err != nil {
			return err
		}
		points, err = decodeTrend(raw)
		return err
	})
	if err != nil {
		return model.TrendSeries{}, nil, err
	}

	series := model.TrendSeries{
		CustomerID: model.CustomerID(id),
		ChartKind:  chart,
		Range:      model.DateRange{Start: start, End: end},
		Points:     points,
	}

	stages, err := c.commit(OpVisualize, func(st *state) error {
		if seq < c.trendApplied {
			return ErrStaleResult
		}
		s := cloneTrend(series)
		st.trend = &s
		c.trendApplied = seq
		return nil
	})
	if err != nil {
		return model.TrendSeries{}, nil, err
	}
	return series, stages, nil
}

// IdentifyRisk lists customers whose latest purchases dropped below the
// threshold.
func (c *Controller) IdentifyRisk(ctx context.Context, src params.Source) (model.RiskSet, error) {
	started := time.Now()
	set, stages, err := c.identifyRisk(ctx, src)
	return set, c.finish(ctx, OpRisk, started, stages, err)
}

func (c *Controller) identifyRisk(ctx context.Context, src params.Source) (model.RiskSet, []model.Stage, error) {
	if err := c.gate(OpRisk); err != nil {
		return model.RiskSet{}, nil, err
	}
	th, err := c.thresholdParams(ctx, src)
	if err != nil {
		return model.RiskSet{}, nil, err
	}

	var set model.RiskSet
	err = c.withBusy(OpRisk, func() error {
		raw, err := c.call(ctx, OpRisk, th.Payload())
		if err != nil {
			return err
		}
		set = decodeRiskSet(raw)
		return nil
	})
	if err != nil {
		return model.RiskSet{}, nil, err
	}

	stages, err := c.commit(OpRisk, func(st *state) error {
		s := cloneRiskSet(set)
		st.risk = &s
		st.threshold = &th
		return nil
	})
	return set, stages, err
}

func (c *Controller) thresholdParams(ctx context.Context, src params.Source) (model.Threshold, error) {
	rawMode, err := params.String(ctx, src, params.Spec{
		Name:    ParamThresholdType,
		Prompt:  "Threshold type",
		Default: string(model.ThresholdPercentage),
		Choices: []string{string(model.ThresholdPercentage), string(model.ThresholdValue)},
	})
	if err != nil {
		return model.Threshold{}, err
	}
	mode, err := model.ParseThresholdMode(rawMode)
	if err != nil {
		return model.Threshold{}, &params.InvalidError{Name: ParamThresholdType, Value: rawMode, Reason: err.Error()}
	}

	spec := params.Spec{Name: ParamThreshold, Prompt: "Drop threshold in tons", Required: true}
	if mode == model.ThresholdPercentage {
		spec.Prompt = "Drop threshold in percent"
		spec.Default = strconv.FormatFloat(c.defaults.ThresholdPct, 'f', 1, 64)
	}
	amount, err := params.Number(ctx, src, spec)
	if err != nil {
		return model.Threshold{}, err
	}
	if amount < 0 {
		return model.Threshold{}, &params.InvalidError{
			Name:   ParamThreshold,
			Value:  strconv.FormatFloat(amount, 'f', -1, 64),
			Reason: "must not be negative",
		}
	}
	return model.Threshold{Mode: mode, Amount: amount}, nil
}

// PredictRisk trains the churn model and stores its evaluation and
// predictions.
func (c *Controller) PredictRisk(ctx context.Context, _ params.Source) (model.PredictionResult, error) {
	started := time.Now()
	res, stages, err := c.predict(ctx)
	return res, c.finish(ctx, OpPredict, started, stages, err)
}

func (c *Controller) predict(ctx context.Context) (model.PredictionResult, []model.Stage, error) {
	if err := c.gate(OpPredict); err != nil {
		return model.PredictionResult{}, nil, err
	}

	var res model.PredictionResult
	err := c.withBusy(OpPredict, func() error {
		raw, err := c.call(ctx, OpPredict, nil)
		if err != nil {
			return err
		}
		res = decodePrediction(raw)
		return nil
	})
	if err != nil {
		return model.PredictionResult{}, nil, err
	}

	stages, err := c.commit(OpPredict, func(st *state) error {
		p := clonePrediction(res)
		st.prediction = &p
		return nil
	})
	return res, stages, err
}

// AnalysisResult is a customer analysis enriched with rule-based risk
// factors when they could be fetched.
type AnalysisResult struct {
	Analysis      model.CustomerAnalysis `json:"analysis"`
	Outcome       reconcile.Outcome      `json:"-"`
	EnrichmentErr error                  `json:"-"`
}

// EnrichmentFailed reports whether the risk rows could not be fetched and
// the base analysis was returned as is.
func (r AnalysisResult) EnrichmentFailed() bool { return r.EnrichmentErr != nil }

// AnalyzeCustomer fetches a customer's base analysis and the current at-risk
// rows concurrently and merges them. Only a failure of the base fetch fails
// the operation.
func (c *Controller) AnalyzeCustomer(ctx context.Context, src params.Source) (AnalysisResult, error) {
	started := time.Now()
	res, err := c.analyze(ctx, src)
	if err == nil && res.EnrichmentFailed() {
		c.record(ctx, OpAnalyze, started, model.EventDegraded, res.EnrichmentErr, nil)
		return res, nil
	}
	return res, c.finish(ctx, OpAnalyze, started, nil, err)
}

func (c *Controller) analyze(ctx context.Context, src params.Source) (AnalysisResult, error) {
	if err := c.gate(OpAnalyze); err != nil {
		return AnalysisResult{}, err
	}
	id, err := params.String(ctx, src, params.Spec{Name: ParamCustomerID, Prompt: "Enter the customer ID", Required: true})
	if err != nil {
		return AnalysisResult{}, err
	}
	customer := model.CustomerID(id)

	c.mu.Lock()
	th := model.Threshold{Mode: model.ThresholdPercentage, Amount: c.defaults.ThresholdPct}
	if c.st.threshold != nil {
		th = *c.st.threshold
	}
	c.mu.Unlock()

	var (
		base    model.CustomerAnalysis
		set     model.RiskSet
		riskErr error
	)
	err = c.withBusy(OpAnalyze, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			raw, err := c.read(gctx, OpAnalyze, map[string]any{"customerId": id})
			if err != nil {
				return err
			}
			base = decodeAnalysis(raw, customer)
			return nil
		})
		g.Go(func() error {
			raw, err := c.read(gctx, OpRisk, th.Payload())
			if err != nil {
				riskErr = err
				return nil
			}
			set = decodeRiskSet(raw)
			return nil
		})
		return g.Wait()
	})
	if err != nil {
		return AnalysisResult{}, err
	}

	res := AnalysisResult{EnrichmentErr: riskErr}
	if riskErr != nil {
		res.Analysis = base.Clone()
	} else {
		res.Analysis, res.Outcome = c.reconciler.Explain(base, set, customer)
	}

	if _, err := c.commit(OpAnalyze, func(st *state) error {
		a := res.Analysis.Clone()
		st.analysis = &a
		return nil
	}); err != nil {
		return AnalysisResult{}, err
	}
	return res, nil
}

func monthParam(ctx context.Context, src params.Source, name, prompt string) (string, error) {
	v, err := params.String(ctx, src, params.Spec{Name: name, Prompt: prompt})
	if err != nil || v == "" {
		return v, err
	}
	if _, err := time.Parse("2006-01", v); err != nil {
		return "", &params.InvalidError{Name: name, Value: v, Reason: "want YYYY-MM"}
	}
	return v, nil
}
