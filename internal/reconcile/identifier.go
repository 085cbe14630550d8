package reconcile

import (
	"github.com/sells-group/churn-cli/internal/model"
)

// Identifier decides which column of a risk set holds customer identifiers.
// It is the single seam where the positional convention of the analytics
// service lives, so a named lookup can replace it without touching Merge.
type Identifier interface {
	Column(set model.RiskSet) (string, bool)
}

// IdentifierFunc adapts a function to Identifier.
type IdentifierFunc func(set model.RiskSet) (string, bool)

// Column implements Identifier.
func (f IdentifierFunc) Column(set model.RiskSet) (string, bool) { return f(set) }

// Positional picks the first key of the first row, falling back to the first
// declared column when that row is empty. Nothing checks that the column
// actually holds customer identifiers.
func Positional() Identifier {
	return IdentifierFunc(func(set model.RiskSet) (string, bool) {
		if len(set.Rows) == 0 {
			return "", false
		}
		if key, ok := set.Rows[0].FirstKey(); ok {
			return key, true
		}
		if len(set.Columns) > 0 && set.Columns[0] != "" {
			return set.Columns[0], true
		}
		return "", false
	})
}

// Named always uses column.
func Named(column string) Identifier {
	return IdentifierFunc(func(model.RiskSet) (string, bool) {
		return column, column != ""
	})
}
