// Package params supplies primitive stage parameters from interchangeable
// sources: an interactive prompt, a decoded request body, or a script file.
package params

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrCancelled aborts a stage before any service call is made.
var ErrCancelled = eris.New("params: cancelled")

// Spec describes one parameter a stage needs.
type Spec struct {
	Name     string
	Prompt   string
	Default  string
	Required bool
	Choices  []string
}

// Source answers parameter requests. An empty answer means "use the
// default"; ErrCancelled means the analyst backed out.
type Source interface {
	Request(ctx context.Context, spec Spec) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, spec Spec) (string, error)

// Request implements Source.
func (f SourceFunc) Request(ctx context.Context, spec Spec) (string, error) { return f(ctx, spec) }

// InvalidError reports a supplied value that does not satisfy its Spec.
type InvalidError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("params: invalid %s %q: %s", e.Name, e.Value, e.Reason)
}

// IsCancelled reports whether err stems from a cancelled request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsInvalid reports whether err is an *InvalidError.
func IsInvalid(err error) bool {
	var ie *InvalidError
	return errors.As(err, &ie)
}

// String resolves a text parameter. A required parameter left empty with no
// default cancels the stage, like dismissing the prompt would.
func String(ctx context.Context, src Source, spec Spec) (string, error) {
	if src == nil {
		src = Defaults()
	}
	v, err := src.Request(ctx, spec)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		v = spec.Default
	}
	if v == "" && spec.Required {
		return "", eris.Wrapf(ErrCancelled, "params: %s not supplied", spec.Name)
	}
	if v != "" && len(spec.Choices) > 0 && !contains(spec.Choices, v) {
		return "", &InvalidError{Name: spec.Name, Value: v, Reason: "want one of " + strings.Join(spec.Choices, ", ")}
	}
	return v, nil
}

// Number resolves a decimal parameter.
func Number(ctx context.Context, src Source, spec Spec) (float64, error) {
	v, err := String(ctx, src, spec)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &InvalidError{Name: spec.Name, Value: v, Reason: "not a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidError{Name: spec.Name, Value: v, Reason: "not a finite number"}
	}
	return f, nil
}

func contains(choices []string, v string) bool {
	for _, c := range choices {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

// Defaults answers every request with its default.
func Defaults() Source {
	return SourceFunc(func(context.Context, Spec) (string, error) { return "", nil })
}

// Map answers from a decoded key/value document such as a JSON body or a
// script step. Missing keys fall back to the default.
type Map map[string]any

// Request implements Source.
func (m Map) Request(_ context.Context, spec Spec) (string, error) {
	v, ok := m[spec.Name]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", &InvalidError{Name: spec.Name, Value: fmt.Sprint(v), Reason: "not a primitive value"}
	}
}
