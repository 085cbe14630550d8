package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Period is an aggregation granularity.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	// PeriodCustom groups by a caller-supplied period alias such as "2W".
	PeriodCustom Period = "custom"
)

// ParsePeriod validates an aggregation granularity.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodMonth, PeriodQuarter, PeriodYear, PeriodCustom:
		return p, nil
	default:
		return "", eris.Errorf("model: invalid period %q (want month, quarter, year or custom)", s)
	}
}

// ChartKind selects how a trend is drawn.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
)

// ParseChartKind validates a chart kind.
func ParseChartKind(s string) (ChartKind, error) {
	switch k := ChartKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ChartLine, ChartBar:
		return k, nil
	default:
		return "", eris.Errorf("model: invalid chart kind %q (want line or bar)", s)
	}
}

// ThresholdMode selects how a purchase drop is measured.
type ThresholdMode string

const (
	ThresholdPercentage ThresholdMode = "percentage"
	ThresholdValue      ThresholdMode = "value"
)

// ParseThresholdMode validates a threshold mode.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch m := ThresholdMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ThresholdPercentage, ThresholdValue:
		return m, nil
	default:
		return "", eris.Errorf("model: invalid threshold type %q (want percentage or value)", s)
	}
}

// Threshold is a rule-based risk cut-off. Exactly one mode is active.
type Threshold struct {
	Mode   ThresholdMode `json:"mode"`
	Amount float64       `json:"amount"`
}

// Payload renders the threshold as the service's mutually exclusive fields.
func (t Threshold) Payload() map[string]any {
	if t.Mode == ThresholdValue {
		return map[string]any{"thresholdValue": t.Amount}
	}
	return map[string]any{"thresholdPct": t.Amount}
}

// DateRange bounds a trend query. Empty bounds are open.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}
