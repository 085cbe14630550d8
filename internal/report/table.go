// Package report renders workflow state for terminals and spreadsheets.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/model"
)

// Table is a rectangular view of rows. Cells keep their raw values so that
// each renderer can format numbers its own way.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// FromRows builds a table over rows. Headers are columns when given,
// otherwise the keys of the first row. Missing cells stay nil.
func FromRows(title string, columns []string, rows []model.Row) Table {
	headers := columns
	if len(headers) == 0 && len(rows) > 0 {
		headers = rows[0].Keys()
	}
	t := Table{Title: title, Headers: append([]string(nil), headers...)}
	for _, r := range rows {
		cells := make([]any, len(headers))
		for i, h := range headers {
			if v, ok := r.Get(h); ok {
				cells[i] = v
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// RiskTable renders the rule-based at-risk rows.
func RiskTable(set model.RiskSet) Table {
	return FromRows("At-Risk Customers (Rule-Based)", set.Columns, set.Rows)
}

// PredictionTable renders the model's high-risk customers.
func PredictionTable(res model.PredictionResult) Table {
	return FromRows("High Churn Risk Customers", nil, res.Predictions)
}

// AnalysisTable renders a customer's monthly and quarterly records.
func AnalysisTable(a model.CustomerAnalysis) Table {
	t := Table{
		Title:   "Customer " + string(a.CustomerID),
		Headers: []string{"granularity", "period", "quantity", "purchase_count"},
	}
	for _, r := range a.MonthlyData {
		t.Rows = append(t.Rows, []any{"month", r.Period, r.Quantity, r.PurchaseCount})
	}
	for _, r := range a.QuarterlyData {
		t.Rows = append(t.Rows, []any{"quarter", r.Period, r.Quantity, r.PurchaseCount})
	}
	return t
}

const chartWidth = 40

// TrendTable renders a trend with a text chart column scaled to the largest
// value.
func TrendTable(s model.TrendSeries) Table {
	t := Table{
		Title:   "Customer Trend: " + string(s.CustomerID),
		Headers: []string{"period", "total_tons", "chart"},
	}
	peak := 0.0
	for _, p := range s.Points {
		peak = math.Max(peak, math.Abs(p.Value))
	}
	for _, p := range s.Points {
		t.Rows = append(t.Rows, []any{p.Period, p.Value, chartCell(s.ChartKind, p.Value, peak)})
	}
	return t
}

func chartCell(kind model.ChartKind, v, peak float64) string {
	if peak == 0 {
		return ""
	}
	n := int(math.Round(math.Abs(v) / peak * chartWidth))
	if kind == model.ChartBar {
		return strings.Repeat("#", n)
	}
	if n == 0 {
		return "*"
	}
	return strings.Repeat(" ", n-1) + "*"
}

// Cell formats a value for a text table. Numbers get four decimals.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.4f", t)
	case float32:
		return fmt.Sprintf("%.4f", t)
	case int:
		return fmt.Sprintf("%.4f", float64(t))
	case int64:
		return fmt.Sprintf("%.4f", float64(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10) + ".0000"
		}
		if f, err := t.Float64(); err == nil {
			return fmt.Sprintf("%.4f", f)
		}
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// Write prints t as aligned columns. An empty table prints a placeholder.
func Write(w io.Writer, t Table) error {
	if t.Title != "" {
		if _, err := fmt.Fprintln(w, t.Title); err != nil {
			return eris.Wrap(err, "report: write title")
		}
	}
	if t.Empty() {
		_, err := fmt.Fprintln(w, "No data to display.")
		return eris.Wrap(err, "report: write table")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = Cell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return eris.Wrap(tw.Flush(), "report: flush table")
}
