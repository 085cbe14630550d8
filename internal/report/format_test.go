package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/workflow"
)

func TestCountAndPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234,567", Count(1234567))
	assert.Equal(t, "87.31%", Percent(0.8731))
	assert.Equal(t, "0.00%", Percent(0))
	assert.Equal(t, "Rows: 12,000, Columns: 8", SummaryLine(model.DatasetSummary{RowCount: 12000, ColumnCount: 8}))
}

func TestEvaluationLines(t *testing.T) {
	t.Parallel()

	lines := EvaluationLines(model.Evaluation{
		Accuracy: 0.9,
		PerClass: map[string]model.ClassMetrics{"1": {Precision: 0.725, Recall: 0.5}},
	})
	assert.Equal(t, []string{
		"Accuracy: 90.00%",
		"Precision (for Churn): 72.50%",
		"Recall (for Churn): 50.00%",
	}, lines)

	missing := EvaluationLines(model.Evaluation{Accuracy: 0.5})
	assert.Equal(t, "Precision (for Churn): 0.00%", missing[1])
}

func TestWriteAnalysis_Degraded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteAnalysis(&buf, workflow.AnalysisResult{
		Analysis:      model.CustomerAnalysis{CustomerID: "C1", RiskFactors: []string{"High volatility"}},
		EnrichmentErr: errors.New("timeout"),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "  - High volatility")
	assert.Contains(t, buf.String(), "rule-based risk factors unavailable")
}

func TestWriteSnapshot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := workflow.Snapshot{
		Stage:              model.StagePredicted,
		Summary:            &model.DatasetSummary{RowCount: 1500, ColumnCount: 6},
		Customers:          []model.CustomerID{"C1", "C2"},
		AggregationMessage: "Aggregated by Month",
		Prediction: &model.PredictionResult{
			Evaluation: model.Evaluation{Accuracy: 0.8},
		},
	}
	require.NoError(t, WriteSnapshot(&buf, snap))
	out := buf.String()
	assert.Contains(t, out, "Stage: predicted")
	assert.Contains(t, out, "Rows: 1,500, Columns: 6")
	assert.Contains(t, out, "2. Aggregation Result: Aggregated by Month")
	assert.Contains(t, out, "Accuracy: 80.00%")
	assert.Contains(t, out, "No data to display.")
}

func TestWriteResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, model.DatasetSummary{RowCount: 10, ColumnCount: 3}))
	require.NoError(t, WriteResult(&buf, "Aggregated by Quarter"))
	require.NoError(t, WriteResult(&buf, model.PredictionResult{Evaluation: model.Evaluation{Accuracy: 0.5}}))

	out := buf.String()
	assert.Contains(t, out, "1. Upload Result: Rows: 10, Columns: 3")
	assert.Contains(t, out, "2. Aggregation Result: Aggregated by Quarter")
	assert.Contains(t, out, "Accuracy: 50.00%")

	err := WriteResult(&buf, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported result int")
}
