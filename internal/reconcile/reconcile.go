// Package reconcile merges a rule-based at-risk row into a customer's
// analysis view. Everything here is pure: no I/O and no shared state.
package reconcile

import (
	"fmt"
	"math"

	"github.com/sells-group/churn-cli/internal/model"
)

// Outcome tells why a merge did or did not add factors.
type Outcome int

const (
	// OutcomeEmpty means the risk set had no rows.
	OutcomeEmpty Outcome = iota
	// OutcomeUnresolved means rows exist but no identifying column could be
	// determined.
	OutcomeUnresolved
	// OutcomeNoMatch means no row carries the customer's identifier.
	OutcomeNoMatch
	// OutcomeMatched means a row matched; zero to three factors were added
	// depending on which fields it carries.
	OutcomeMatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// Field names the analytics service uses in risk rows.
const (
	FieldPeriod    = "period"
	FieldTotalTons = "total_tons"
	FieldAvgLast3  = "avg_last_3_tons"
	FieldDropPct   = "drop_pct"
	FieldDropValue = "drop_value"
)

// fieldAliases are the display headers the service uses when it renames
// risk columns for presentation.
var fieldAliases = map[string][]string{
	FieldPeriod:    {"Last Period"},
	FieldTotalTons: {"Last Purchase (Tons)"},
	FieldAvgLast3:  {"Previous Average (Tons)"},
	FieldDropPct:   {"% Drop"},
	FieldDropValue: {"Drop (Tons)"},
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithIdentifier replaces the identifying-column strategy.
func WithIdentifier(id Identifier) Option {
	return func(r *Reconciler) {
		if id != nil {
			r.identifier = id
		}
	}
}

// Reconciler merges risk rows using a configurable identifier strategy.
type Reconciler struct {
	identifier Identifier
}

// New returns a Reconciler that uses Positional unless overridden.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{identifier: Positional()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultReconciler = New()

// Reconcile merges with the positional identifier.
func Reconcile(base model.CustomerAnalysis, set model.RiskSet, id model.CustomerID) model.CustomerAnalysis {
	out, _ := defaultReconciler.Explain(base, set, id)
	return out
}

// Merge returns base with the factors synthesized from the row matching id
// appended to its risk factors.
func (r *Reconciler) Merge(base model.CustomerAnalysis, set model.RiskSet, id model.CustomerID) model.CustomerAnalysis {
	out, _ := r.Explain(base, set, id)
	return out
}

// Explain is Merge plus the reason for the result. The returned analysis
// never shares slices with base.
func (r *Reconciler) Explain(base model.CustomerAnalysis, set model.RiskSet, id model.CustomerID) (model.CustomerAnalysis, Outcome) {
	out := base.Clone()
	if set.Empty() {
		return out, OutcomeEmpty
	}

	column, ok := r.identifier.Column(set)
	if !ok {
		return out, OutcomeUnresolved
	}

	row, ok := findRow(set, column, id)
	if !ok {
		return out, OutcomeNoMatch
	}

	if extra := Factors(row); len(extra) > 0 {
		out.RiskFactors = append(out.RiskFactors, extra...)
	}
	return out, OutcomeMatched
}

func findRow(set model.RiskSet, column string, id model.CustomerID) (model.Row, bool) {
	for _, row := range set.Rows {
		if v, ok := row.String(column); ok && v == string(id) {
			return row, true
		}
	}
	return model.Row{}, false
}

// Factors synthesizes the human-readable risk factors a row supports. A
// factor whose fields are absent or non-numeric is left out.
func Factors(row model.Row) []string {
	var out []string

	pct, okPct := floatField(row, FieldDropPct)
	drop, okDrop := floatField(row, FieldDropValue)
	if okPct && okDrop {
		out = append(out, fmt.Sprintf("Purchases dropped %.1f%% (%.3f tons) below the previous 3-period average", pct, drop))
	}

	total, okTotal := floatField(row, FieldTotalTons)
	period, okPeriod := stringField(row, FieldPeriod)
	if okTotal && okPeriod {
		out = append(out, fmt.Sprintf("Latest purchase in %s: %.3f tons", period, total))
	}

	if avg, ok := floatField(row, FieldAvgLast3); ok {
		out = append(out, fmt.Sprintf("Previous 3-period average: %.3f tons", avg))
	}
	return out
}

func floatField(row model.Row, name string) (float64, bool) {
	for _, key := range lookupKeys(name) {
		if v, ok := row.Float(key); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

func stringField(row model.Row, name string) (string, bool) {
	for _, key := range lookupKeys(name) {
		if v, ok := row.String(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func lookupKeys(name string) []string {
	return append([]string{name}, fieldAliases[name]...)
}
