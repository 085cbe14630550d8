package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/model"
)

func TestDecodeTrend_FlexibleKeys(t *testing.T) {
	t.Parallel()

	points, err := decodeTrend([]byte(`[{"period":"2024-01","value":"3.5"},{"period_dt":"2024-02-01","total_tons":4}]`))
	require.NoError(t, err)
	assert.Equal(t, []model.TrendPoint{{Period: "2024-01", Value: 3.5}, {Period: "2024-02-01", Value: 4}}, points)

	empty, err := decodeTrend([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDecodeTrend_NonNumericValue(t *testing.T) {
	t.Parallel()

	_, err := decodeTrend([]byte(`[{"period":"2024-01","value":1},{"period":"2024-02","value":"n/a"}]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "point 1")
}

func TestDecodeRiskSet_BareArrayKeepsColumnOrder(t *testing.T) {
	t.Parallel()

	set := decodeRiskSet([]byte(`[{"Client":"C7","Last Period":"2024-03","% Drop":55.5},{"Client":"C8","Last Period":"2024-03","% Drop":31}]`))
	assert.Equal(t, []string{"Client", "Last Period", "% Drop"}, set.Columns)
	require.Len(t, set.Rows, 2)
	v, ok := set.Rows[1].String("Client")
	require.True(t, ok)
	assert.Equal(t, "C8", v)
}

func TestDecodeRiskSet_Object(t *testing.T) {
	t.Parallel()

	set := decodeRiskSet([]byte(`{"columns":["id","drop_pct"],"rows":[{"drop_pct":40,"id":"A"}]}`))
	assert.Equal(t, []string{"id", "drop_pct"}, set.Columns)
	key, ok := set.Rows[0].FirstKey()
	require.True(t, ok)
	assert.Equal(t, "drop_pct", key, "row order is the row's own, not the declared columns")
}

func TestDecodeAnalysis(t *testing.T) {
	t.Parallel()

	a := decodeAnalysis([]byte(`{"monthly_data":[{"period_dt":"2024-01","total_tons":"2.5","num_purchases":3}],"risk_factors":["Low frequency"]}`), "C5")
	assert.Equal(t, model.CustomerID("C5"), a.CustomerID)
	assert.Equal(t, []model.PeriodRecord{{Period: "2024-01", Quantity: 2.5, PurchaseCount: 3}}, a.MonthlyData)
	assert.Nil(t, a.QuarterlyData)
	assert.Equal(t, []string{"Low frequency"}, a.RiskFactors)
}

func TestDecodePrediction_FlatEvaluation(t *testing.T) {
	t.Parallel()

	p := decodePrediction([]byte(`{"evaluation":{"accuracy":0.5,"1":{"precision":0.4,"recall":0.3,"f1_score":0.35}},"predictions":[]}`))
	assert.InDelta(t, 0.5, p.Evaluation.Accuracy, 1e-9)
	assert.InDelta(t, 0.35, p.Evaluation.ChurnClass().F1, 1e-9)
	assert.Empty(t, p.Predictions)
}

func TestDecodePrediction_SkipsAverages(t *testing.T) {
	t.Parallel()

	p := decodePrediction([]byte(`{"evaluation":{"report":{"accuracy":0.9,"macro avg":{"precision":0.8,"recall":0.7},"1":{"precision":0.6,"recall":0.5}}}}`))
	assert.Len(t, p.Evaluation.PerClass, 2)
	assert.Zero(t, p.Evaluation.PerClass["0"])
	assert.InDelta(t, 0.6, p.Evaluation.ChurnClass().Precision, 1e-9)
}

func TestDecodeIngest(t *testing.T) {
	t.Parallel()

	res, err := decodeIngest([]byte(`{"message":"ok","data":{"totalRows":3,"totalColumns":2},"customers":["A",""]}`))
	require.NoError(t, err)
	assert.Equal(t, model.DatasetSummary{RowCount: 3, ColumnCount: 2}, res.Summary)
	assert.Equal(t, []model.CustomerID{"A"}, res.Customers)
	assert.Equal(t, "ok", res.Message)
}

func TestValidateResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ep   gateway.Endpoint
		body string
		ok   bool
	}{
		{"ingest ok", gateway.Ingest, `{"data":{"totalRows":1,"totalColumns":1}}`, true},
		{"ingest missing data", gateway.Ingest, `{"message":"hi"}`, false},
		{"ingest negative", gateway.Ingest, `{"data":{"totalRows":-1,"totalColumns":1}}`, false},
		{"trend array", gateway.Trend, `[{"period":"x","value":1}]`, true},
		{"trend object", gateway.Trend, `{"period":"x"}`, false},
		{"risk bare", gateway.AtRisk, `[]`, true},
		{"risk object", gateway.AtRisk, `{"columns":["a"],"rows":[{"a":1}]}`, true},
		{"risk scalar", gateway.AtRisk, `"nope"`, false},
		{"analysis factors", gateway.CustomerAnalysis, `{"risk_factors":[1]}`, false},
		{"predict ok", gateway.TrainAndPredict, `{"evaluation":{}}`, true},
		{"predict missing", gateway.TrainAndPredict, `{"predictions":[]}`, false},
		{"aggregate", gateway.Aggregate, `{"message":"done"}`, true},
		{"ingest large counts", gateway.Ingest, `{"data":{"totalRows":12345678901234567,"totalColumns":3}}`, true},
		{"malformed json", gateway.Ingest, `{"data":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateResponse(tt.ep, []byte(tt.body))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			}
		})
	}
}
