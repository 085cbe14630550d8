// Package workflow sequences the churn-analysis stages against the analytics
// service and owns the state an analyst sees between them.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/pipeline"
	"github.com/sells-group/churn-cli/internal/reconcile"
	"github.com/sells-group/churn-cli/internal/resilience"
	"github.com/sells-group/churn-cli/internal/store"
)

// Indicator shows that a service call is in flight.
type Indicator interface {
	Start(label string)
	Stop()
}

// Defaults are the values offered when the analyst leaves a prompt empty.
type Defaults struct {
	Dataset      string
	ThresholdPct float64
}

// DefaultDefaults returns the stock prompt defaults.
func DefaultDefaults() Defaults {
	return Defaults{Dataset: "ventas_anonimizadas.csv", ThresholdPct: 30.0}
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records sessions and stage events.
func WithJournal(j store.Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithBusy sets the in-flight indicator.
func WithBusy(ind Indicator) Option {
	return func(c *Controller) { c.busy = ind }
}

// WithReconciler replaces the positional reconciler.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(c *Controller) { c.reconciler = r }
}

// WithReadRetry sets the retry policy for read-only calls.
func WithReadRetry(cfg resilience.RetryConfig) Option {
	return func(c *Controller) { c.readRetry = cfg }
}

// WithSessionID attaches the controller to an existing journal session.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithDefaults overrides the prompt defaults.
func WithDefaults(d Defaults) Option {
	return func(c *Controller) { c.defaults = d }
}

// Controller runs stage operations. It is safe for concurrent use; the state
// lock is never held across a service call.
type Controller struct {
	gw         gateway.Gateway
	journal    store.Journal
	busy       Indicator
	reconciler *reconcile.Reconciler
	readRetry  resilience.RetryConfig
	defaults   Defaults

	// sessionMu serializes journal session creation so the database call
	// never runs under mu.
	sessionMu sync.Mutex

	mu        sync.Mutex
	sessionID string
	pipe      *pipeline.Pipeline
	st        state

	// trendIssued numbers Visualize requests; trendApplied is the highest
	// number whose response has been applied.
	trendIssued  uint64
	trendApplied uint64
}

// New creates a Controller over gw.
func New(gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:         gw,
		reconciler: reconcile.New(),
		readRetry:  resilience.DefaultRetryConfig(),
		defaults:   DefaultDefaults(),
		pipe:       pipeline.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.busy == nil {
		c.busy = noopIndicator{}
	}
	return c
}

// Resume restores the reached stages of a journaled session. View state is
// not journaled and starts empty.
func (c *Controller) Resume(ctx context.Context, sessionID string) error {
	if c.journal == nil {
		return eris.New("workflow: resume requires a journal")
	}
	sess, err := c.journal.GetSession(ctx, sessionID)
	if err != nil {
		return eris.Wrapf(err, "workflow: resume %s", sessionID)
	}
	p, err := pipeline.Restore(sess.Stages)
	if err != nil {
		return eris.Wrapf(err, "workflow: resume %s", sessionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sess.ID
	c.pipe = p
	c.st = state{}
	zap.L().Info("workflow: session resumed",
		zap.String("session_id", sess.ID),
		zap.Stringer("stage", p.Current()),
	)
	return nil
}

// gate rejects op when its prerequisite has not been reached.
func (c *Controller) gate(op Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	required := op.Requires()
	if c.pipe.CanInvoke(required) {
		return nil
	}
	return &pipeline.StageOrderError{From: c.pipe.Current(), To: op.Target(), Missing: required}
}

// call issues one service request, validating the response shape.
func (c *Controller) call(ctx context.Context, op Op, payload any) (json.RawMessage, error) {
	ep := opTable[op].endpoint
	raw, err := c.gw.Call(ctx, ep, payload)
	if err != nil {
		return nil, err
	}
	if err := validateResponse(ep, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// read is call with the bounded read retry. Only idempotent endpoints go
// through here.
func (c *Controller) read(ctx context.Context, op Op, payload any) (json.RawMessage, error) {
	cfg := c.readRetry
	cfg.ShouldRetry = func(err error) bool {
		se, ok := gateway.AsServiceError(err)
		return ok && se.Transient()
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("workflow: " + string(op))
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (json.RawMessage, error) {
		return c.call(ctx, op, payload)
	})
}

func (c *Controller) withBusy(op Op, fn func() error) error {
	c.busy.Start(op.Title())
	defer c.busy.Stop()
	return fn()
}

// commit applies a successful response under the state lock and advances
// the pipeline to op's target. The gate is re-checked because another
// operation may have invalidated the prerequisite while the call was in
// flight. An error from apply leaves both state and pipeline untouched.
func (c *Controller) commit(op Op, apply func(st *state) error) ([]model.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pipe.CanInvoke(op.Requires()) {
		return nil, &pipeline.StageOrderError{From: c.pipe.Current(), To: op.Target(), Missing: op.Requires()}
	}
	if err := apply(&c.st); err != nil {
		return nil, err
	}
	if op.Advances() {
		if err := c.pipe.Advance(op.Target()); err != nil {
			return nil, err
		}
	}
	return c.pipe.Reached(), nil
}

// finish logs and journals the outcome of op and wraps a failure.
func (c *Controller) finish(ctx context.Context, op Op, started time.Time, stages []model.Stage, err error) error {
	status := statusFor(err)
	c.record(ctx, op, started, status, err, stages)
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

func statusFor(err error) model.EventStatus {
	switch {
	case err == nil:
		return model.EventSucceeded
	case params.IsCancelled(err):
		return model.EventCancelled
	case IsStageOrder(err), params.IsInvalid(err), errors.Is(err, ErrStaleResult):
		return model.EventRejected
	default:
		return model.EventFailed
	}
}

func (c *Controller) record(ctx context.Context, op Op, started time.Time, status model.EventStatus, err error, stages []model.Stage) {
	elapsed := time.Since(started)
	sessionID := c.ensureSession(ctx)

	fields := []zap.Field{
		zap.String("op", string(op)),
		zap.String("status", string(status)),
		zap.String("session_id", sessionID),
		zap.Duration("elapsed", elapsed),
	}
	switch status {
	case model.EventSucceeded:
		zap.L().Info("workflow: stage complete", fields...)
	case model.EventFailed, model.EventDegraded:
		zap.L().Warn("workflow: stage failed", append(fields, zap.Error(err))...)
	default:
		zap.L().Info("workflow: stage not run", append(fields, zap.Error(err))...)
	}

	if c.journal == nil || sessionID == "" {
		return
	}
	// The journal must not fail a stage that already completed.
	ctx = context.WithoutCancel(ctx)
	ev := model.StageEvent{
		SessionID:  sessionID,
		Operation:  string(op),
		Status:     status,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Message = err.Error()
	}
	if _, jerr := c.journal.RecordEvent(ctx, ev); jerr != nil {
		zap.L().Warn("workflow: journal event failed", zap.String("session_id", sessionID), zap.Error(jerr))
	}
	if stages != nil {
		if jerr := c.journal.SaveStages(ctx, sessionID, stages); jerr != nil {
			zap.L().Warn("workflow: journal stages failed", zap.String("session_id", sessionID), zap.Error(jerr))
		}
	}
}

// ensureSession returns the journal session, creating it on first use.
func (c *Controller) ensureSession(ctx context.Context) string {
	if c.journal == nil {
		return ""
	}
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if id := c.SessionID(); id != "" {
		return id
	}

	sess, err := c.journal.CreateSession(context.WithoutCancel(ctx))
	if err != nil {
		zap.L().Warn("workflow: journal session create failed", zap.Error(err))
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		c.sessionID = sess.ID
	}
	return c.sessionID
}

type noopIndicator struct{}

func (noopIndicator) Start(string) {}
func (noopIndicator) Stop()        {}
