package workflow

import (
	"github.com/sells-group/churn-cli/internal/model"
)

// state is the view data behind the controller. Each successful operation
// replaces its own slot wholesale.
type state struct {
	summary     *model.DatasetSummary
	customers   []model.CustomerID
	aggregation string
	period      model.Period
	trend       *model.TrendSeries
	risk        *model.RiskSet
	threshold   *model.Threshold
	prediction  *model.PredictionResult
	analysis    *model.CustomerAnalysis
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	SessionID          string                  `json:"session_id,omitempty"`
	Stage              model.Stage             `json:"stage"`
	Reached            []model.Stage           `json:"reached"`
	Summary            *model.DatasetSummary   `json:"summary,omitempty"`
	Customers          []model.CustomerID      `json:"customers,omitempty"`
	AggregationMessage string                  `json:"aggregation_message,omitempty"`
	Period             model.Period            `json:"period,omitempty"`
	Trend              *model.TrendSeries      `json:"trend,omitempty"`
	Risk               *model.RiskSet          `json:"risk,omitempty"`
	Threshold          *model.Threshold        `json:"threshold,omitempty"`
	Prediction         *model.PredictionResult `json:"prediction,omitempty"`
	Analysis           *model.CustomerAnalysis `json:"analysis,omitempty"`
}

func cloneRows(rows []model.Row) []model.Row {
	if rows == nil {
		return nil
	}
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func cloneRiskSet(s model.RiskSet) model.RiskSet {
	return model.RiskSet{
		Columns: append([]string(nil), s.Columns...),
		Rows:    cloneRows(s.Rows),
	}
}

func cloneTrend(t model.TrendSeries) model.TrendSeries {
	t.Points = append([]model.TrendPoint(nil), t.Points...)
	return t
}

func clonePrediction(p model.PredictionResult) model.PredictionResult {
	out := model.PredictionResult{
		Evaluation:  model.Evaluation{Accuracy: p.Evaluation.Accuracy},
		Predictions: cloneRows(p.Predictions),
	}
	if p.Evaluation.PerClass != nil {
		out.Evaluation.PerClass = make(map[string]model.ClassMetrics, len(p.Evaluation.PerClass))
		for k, v := range p.Evaluation.PerClass {
			out.Evaluation.PerClass[k] = v
		}
	}
	return out
}

// Stage returns the most recently reached stage.
func (c *Controller) Stage() model.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipe.Current()
}

// Reached lists the reached stages in workflow order.
func (c *Controller) Reached() []model.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipe.Reached()
}

// CanRun reports whether op's prerequisite has been reached.
func (c *Controller) CanRun(op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipe.CanInvoke(op.Requires())
}

// SessionID returns the journal session, if any.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Summary returns the ingested dataset summary.
func (c *Controller) Summary() (model.DatasetSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.summary == nil {
		return model.DatasetSummary{}, false
	}
	return *c.st.summary, true
}

// Customers returns the roster from the last ingestion.
func (c *Controller) Customers() []model.CustomerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CustomerID(nil), c.st.customers...)
}

// AggregationMessage returns the service's confirmation of the last
// aggregation.
func (c *Controller) AggregationMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.aggregation
}

// Trend returns the trend series currently on view.
func (c *Controller) Trend() (model.TrendSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.trend == nil {
		return model.TrendSeries{}, false
	}
	return cloneTrend(*c.st.trend), true
}

// RiskSet returns the rule-based at-risk rows currently on view.
func (c *Controller) RiskSet() (model.RiskSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.risk == nil {
		return model.RiskSet{}, false
	}
	return cloneRiskSet(*c.st.risk), true
}

// Prediction returns the last train-and-predict result.
func (c *Controller) Prediction() (model.PredictionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.prediction == nil {
		return model.PredictionResult{}, false
	}
	return clonePrediction(*c.st.prediction), true
}

// Analysis returns the last customer analysis.
func (c *Controller) Analysis() (model.CustomerAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.analysis == nil {
		return model.CustomerAnalysis{}, false
	}
	return c.st.analysis.Clone(), true
}

// Snapshot copies the whole state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID:          c.sessionID,
		Stage:              c.pipe.Current(),
		Reached:            c.pipe.Reached(),
		Customers:          append([]model.CustomerID(nil), c.st.customers...),
		AggregationMessage: c.st.aggregation,
		Period:             c.st.period,
	}
	if c.st.summary != nil {
		s := *c.st.summary
		snap.Summary = &s
	}
	if c.st.trend != nil {
		t := cloneTrend(*c.st.trend)
		snap.Trend = &t
	}
	if c.st.risk != nil {
		r := cloneRiskSet(*c.st.risk)
		snap.Risk = &r
	}
	if c.st.threshold != nil {
		th := *c.st.threshold
		snap.Threshold = &th
	}
	if c.st.prediction != nil {
		p := clonePrediction(*c.st.prediction)
		snap.Prediction = &p
	}
	if c.st.analysis != nil {
		a := c.st.analysis.Clone()
		snap.Analysis = &a
	}
	return snap
}
