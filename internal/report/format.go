package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/workflow"
)

var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a ratio in [0,1] as a percentage with two decimals.
func Percent(ratio float64) string {
	return printer.Sprintf("%.2f%%", ratio*100)
}

// SummaryLine describes an ingested dataset.
func SummaryLine(s model.DatasetSummary) string {
	return fmt.Sprintf("Rows: %s, Columns: %s", Count(s.RowCount), Count(s.ColumnCount))
}

// EvaluationLines describes model quality on the churn class.
func EvaluationLines(e model.Evaluation) []string {
	churn := e.ChurnClass()
	return []string{
		"Accuracy: " + Percent(e.Accuracy),
		"Precision (for Churn): " + Percent(churn.Precision),
		"Recall (for Churn): " + Percent(churn.Recall),
	}
}

// WriteAnalysis prints a customer analysis with its risk factors.
func WriteAnalysis(w io.Writer, res workflow.AnalysisResult) error {
	if err := Write(w, AnalysisTable(res.Analysis)); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("Risk factors:\n")
	if len(res.Analysis.RiskFactors) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, f := range res.Analysis.RiskFactors {
		b.WriteString("  - " + f + "\n")
	}
	if res.EnrichmentFailed() {
		b.WriteString("Note: rule-based risk factors unavailable: " + workflow.UserMessage(res.EnrichmentErr) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write analysis")
}

// WriteSnapshot prints every populated part of the workflow state.
func WriteSnapshot(w io.Writer, snap workflow.Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage: %s\n", snap.Stage)
	if snap.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", snap.SessionID)
	}
	if snap.Summary != nil {
		b.WriteString("1. Upload Result: " + SummaryLine(*snap.Summary) + "\n")
		fmt.Fprintf(&b, "   Customers: %s\n", Count(len(snap.Customers)))
	}
	if snap.AggregationMessage != "" {
		b.WriteString("2. Aggregation Result: " + snap.AggregationMessage + "\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write snapshot")
	}

	if snap.Trend != nil {
		if err := Write(w, TrendTable(*snap.Trend)); err != nil {
			return err
		}
	}
	if snap.Risk != nil {
		if err := Write(w, RiskTable(*snap.Risk)); err != nil {
			return err
		}
	}
	if snap.Prediction != nil {
		for _, line := range EvaluationLines(snap.Prediction.Evaluation) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return eris.Wrap(err, "report: write evaluation")
			}
		}
		if err := Write(w, PredictionTable(*snap.Prediction)); err != nil {
			return err
		}
	}
	if snap.Analysis != nil {
		if err := WriteAnalysis(w, workflow.AnalysisResult{Analysis: *snap.Analysis}); err != nil {
			return err
		}
	}
	return nil
}

// WriteResult prints the result of a single workflow operation.
func WriteResult(w io.Writer, res any) error {
	switch v := res.(type) {
	case model.DatasetSummary:
		_, err := fmt.Fprintln(w, "1. Upload Result: "+SummaryLine(v))
		return eris.Wrap(err, "report: write summary")
	case string:
		_, err := fmt.Fprintln(w, "2. Aggregation Result: "+v)
		return eris.Wrap(err, "report: write aggregation")
	case model.TrendSeries:
		return Write(w, TrendTable(v))
	case model.RiskSet:
		return Write(w, RiskTable(v))
	case model.PredictionResult:
		for _, line := range EvaluationLines(v.Evaluation) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return eris.Wrap(err, "report: write evaluation")
			}
		}
		return Write(w, PredictionTable(v))
	case workflow.AnalysisResult:
		return WriteAnalysis(w, v)
	default:
		return eris.Errorf("report: unsupported result %T", res)
	}
}
