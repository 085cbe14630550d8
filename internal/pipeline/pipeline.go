// Package pipeline tracks which workflow stages have completed and gates the
// stages that depend on them.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/model"
)

// StageOrderError is returned when a stage is requested before its
// prerequisite has been reached.
type StageOrderError struct {
	From    model.Stage
	To      model.Stage
	Missing model.Stage
}

func (e *StageOrderError) Error() string {
	return fmt.Sprintf("pipeline: cannot reach %s from %s: %s has not completed", e.To, e.From, e.Missing)
}

// Pipeline is the stage state machine. The zero value is not usable; call
// New. A Pipeline is not safe for concurrent use.
type Pipeline struct {
	reached map[model.Stage]bool
	current model.Stage
}

// New returns a pipeline at StageIdle.
func New() *Pipeline {
	return &Pipeline{
		reached: map[model.Stage]bool{model.StageIdle: true},
		current: model.StageIdle,
	}
}

// Current returns the most recently advanced stage that is still reached.
func (p *Pipeline) Current() model.Stage {
	return p.current
}

// CanInvoke reports whether required has been reached, so that a stage
// depending on it may run.
func (p *Pipeline) CanInvoke(required model.Stage) bool {
	return p.reached[required]
}

// Require returns a *StageOrderError when the prerequisite of stage has not
// been reached.
func (p *Pipeline) Require(stage model.Stage) error {
	pre, ok := stage.Prerequisite()
	if !ok || p.CanInvoke(pre) {
		return nil
	}
	return &StageOrderError{From: p.current, To: stage, Missing: pre}
}

// Advance marks to as reached. Advancing never regresses: stages already
// reached stay reached.
func (p *Pipeline) Advance(to model.Stage) error {
	if !to.Valid() {
		return eris.Errorf("pipeline: unknown stage %d", int(to))
	}
	if to == model.StageIdle {
		return nil
	}
	if err := p.Require(to); err != nil {
		return err
	}
	p.reached[to] = true
	p.current = to
	return nil
}

// Invalidate clears every stage that depends on from. It is used when the
// data a later stage was computed on has been replaced.
func (p *Pipeline) Invalidate(from model.Stage) {
	for _, s := range model.Stages {
		if s.DependsOn(from) {
			delete(p.reached, s)
		}
	}
	if !p.reached[p.current] {
		p.current = p.highest()
	}
}

// Reached lists the reached stages in enum order, excluding StageIdle.
func (p *Pipeline) Reached() []model.Stage {
	out := make([]model.Stage, 0, len(p.reached))
	for s, ok := range p.reached {
		if ok && s != model.StageIdle {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Restore rebuilds a pipeline from a list of reached stages, checking every
// edge as if the stages had been advanced in enum order.
func Restore(stages []model.Stage) (*Pipeline, error) {
	sorted := append([]model.Stage(nil), stages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p := New()
	for _, s := range sorted {
		if err := p.Advance(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) highest() model.Stage {
	best := model.StageIdle
	for s, ok := range p.reached {
		if ok && s > best {
			best = s
		}
	}
	return best
}
