package workflow

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/churn-cli/internal/model"
)

type ingestResult struct {
	Summary   model.DatasetSummary
	Customers []model.CustomerID
	Message   string
}

func decodeIngest(raw []byte) (ingestResult, error) {
	doc := gjson.ParseBytes(raw)
	out := ingestResult{
		Summary: model.DatasetSummary{
			RowCount:    int(doc.Get("data.totalRows").Int()),
			ColumnCount: int(doc.Get("data.totalColumns").Int()),
		},
		Message: doc.Get("message").String(),
	}
	if out.Summary.RowCount < 0 || out.Summary.ColumnCount < 0 {
		return ingestResult{}, eris.Wrap(ErrInvalidResponse, "ingest: negative dataset dimensions")
	}
	doc.Get("customers").ForEach(func(_, v gjson.Result) bool {
		if id := v.String(); id != "" {
			out.Customers = append(out.Customers, model.CustomerID(id))
		}
		return true
	})
	return out, nil
}

// first returns the first of keys present on obj.
func first(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(gjson.Escape(k)); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

var (
	trendPeriodKeys = []string{"period_dt", "period", "date"}
	trendValueKeys  = []string{"total_tons", "value", "quantity"}
)

func decodeTrend(raw []byte) ([]model.TrendPoint, error) {
	points := []model.TrendPoint{}
	var bad error
	gjson.ParseBytes(raw).ForEach(func(_, item gjson.Result) bool {
		period := first(item, trendPeriodKeys...)
		value := first(item, trendValueKeys...)
		f, ok := model.ToFloat(value.Value())
		if !period.Exists() || !ok {
			bad = eris.Wrapf(ErrInvalidResponse, "trend: point %d lacks a period or numeric value", len(points))
			return false
		}
		points = append(points, model.TrendPoint{Period: period.String(), Value: f})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return points, nil
}

func decodeRiskSet(raw []byte) model.RiskSet {
	doc := gjson.ParseBytes(raw)
	rows := doc
	var set model.RiskSet
	if doc.IsObject() {
		rows = doc.Get("rows")
		doc.Get("columns").ForEach(func(_, c gjson.Result) bool {
			set.Columns = append(set.Columns, c.String())
			return true
		})
	}
	rows.ForEach(func(_, item gjson.Result) bool {
		set.Rows = append(set.Rows, model.RowFromJSON(item))
		return true
	})
	if len(set.Columns) == 0 && len(set.Rows) > 0 {
		set.Columns = set.Rows[0].Keys()
	}
	return set
}

var (
	recordPeriodKeys   = []string{"period", "period_dt", "month", "quarter"}
	recordQuantityKeys = []string{"quantity", "total_tons", "tons"}
	recordCountKeys    = []string{"purchase_count", "num_purchases", "count"}
)

func decodeRecords(list gjson.Result) []model.PeriodRecord {
	var out []model.PeriodRecord
	list.ForEach(func(_, item gjson.Result) bool {
		rec := model.PeriodRecord{Period: first(item, recordPeriodKeys...).String()}
		if q, ok := model.ToFloat(first(item, recordQuantityKeys...).Value()); ok {
			rec.Quantity = q
		}
		if c, ok := model.ToFloat(first(item, recordCountKeys...).Value()); ok {
			rec.PurchaseCount = int(c)
		}
		out = append(out, rec)
		return true
	})
	return out
}

func decodeAnalysis(raw []byte, requested model.CustomerID) model.CustomerAnalysis {
	doc := gjson.ParseBytes(raw)
	out := model.CustomerAnalysis{
		CustomerID:    requested,
		MonthlyData:   decodeRecords(doc.Get("monthly_data")),
		QuarterlyData: decodeRecords(doc.Get("quarterly_data")),
	}
	if id := doc.Get("customer_id").String(); id != "" {
		out.CustomerID = model.CustomerID(id)
	}
	doc.Get("risk_factors").ForEach(func(_, f gjson.Result) bool {
		out.RiskFactors = append(out.RiskFactors, f.String())
		return true
	})
	return out
}

func decodePrediction(raw []byte) model.PredictionResult {
	doc := gjson.ParseBytes(raw)
	eval := doc.Get("evaluation")
	report := eval.Get("report")
	if !report.Exists() {
		report = eval
	}

	out := model.PredictionResult{
		Evaluation: model.Evaluation{PerClass: map[string]model.ClassMetrics{}},
	}
	if acc := first(eval, "accuracy"); acc.Exists() {
		out.Evaluation.Accuracy = acc.Float()
	} else {
		out.Evaluation.Accuracy = report.Get("accuracy").Float()
	}
	report.ForEach(func(label, m gjson.Result) bool {
		if !m.IsObject() || !m.Get("precision").Exists() {
			return true
		}
		out.Evaluation.PerClass[label.String()] = model.ClassMetrics{
			Precision: m.Get("precision").Float(),
			Recall:    m.Get("recall").Float(),
			F1:        first(m, "f1-score", "f1_score").Float(),
			Support:   m.Get("support").Float(),
		}
		return true
	})
	doc.Get("predictions").ForEach(func(_, item gjson.Result) bool {
		out.Predictions = append(out.Predictions, model.RowFromJSON(item))
		return true
	})
	return out
}

func decodeMessage(raw []byte) string {
	return gjson.GetBytes(raw, "message").String()
}
