package model

// CustomerID identifies a customer of the ingested dataset.
type CustomerID string

// DatasetSummary describes an ingested dataset.
type DatasetSummary struct {
	RowCount    int `json:"row_count"`
	ColumnCount int `json:"column_count"`
}

// TrendPoint is one period of a customer's purchase trend.
type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// TrendSeries is a chronological trend for one customer.
type TrendSeries struct {
	CustomerID CustomerID   `json:"customer_id"`
	ChartKind  ChartKind    `json:"chart_kind"`
	Range      DateRange    `json:"range"`
	Points     []TrendPoint `json:"points"`
}

// RiskSet is the rule-based at-risk result: declared columns plus rows.
type RiskSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Empty reports whether the set has no rows.
func (s RiskSet) Empty() bool { return len(s.Rows) == 0 }

// PeriodRecord is an aggregated purchase figure for one period.
type PeriodRecord struct {
	Period        string  `json:"period"`
	Quantity      float64 `json:"quantity"`
	PurchaseCount int     `json:"purchase_count"`
}

// CustomerAnalysis is the deep-analysis view of a single customer.
type CustomerAnalysis struct {
	CustomerID    CustomerID     `json:"customer_id"`
	MonthlyData   []PeriodRecord `json:"monthly_data"`
	QuarterlyData []PeriodRecord `json:"quarterly_data"`
	RiskFactors   []string       `json:"risk_factors"`
}

// Clone returns a deep copy of the analysis.
func (a CustomerAnalysis) Clone() CustomerAnalysis {
	out := CustomerAnalysis{CustomerID: a.CustomerID}
	if a.MonthlyData != nil {
		out.MonthlyData = append([]PeriodRecord(nil), a.MonthlyData...)
	}
	if a.QuarterlyData != nil {
		out.QuarterlyData = append([]PeriodRecord(nil), a.QuarterlyData...)
	}
	if a.RiskFactors != nil {
		out.RiskFactors = append([]string(nil), a.RiskFactors...)
	}
	return out
}

// ClassMetrics holds per-class evaluation figures.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score,omitempty"`
	Support   float64 `json:"support,omitempty"`
}

// ChurnLabel is the class label the model uses for churned customers.
const ChurnLabel = "1"

// Evaluation summarizes model quality on the held-out split.
type Evaluation struct {
	Accuracy float64                 `json:"accuracy"`
	PerClass map[string]ClassMetrics `json:"per_class"`
}

// ChurnClass returns the metrics for the churn label, or zero values.
func (e Evaluation) ChurnClass() ClassMetrics {
	return e.PerClass[ChurnLabel]
}

// PredictionResult is the outcome of a train-and-predict run.
type PredictionResult struct {
	Evaluation  Evaluation `json:"evaluation"`
	Predictions []Row      `json:"predictions"`
}
