package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/resilience"
	"github.com/sells-group/churn-cli/internal/store"
	"github.com/sells-group/churn-cli/internal/workflow"
)

// workflowEnv holds the store and controller used by the session, run and
// serve commands.
type workflowEnv struct {
	Store      store.Store // nil when journaling is disabled
	Controller *workflow.Controller
}

// Close releases resources held by the environment.
func (we *workflowEnv) Close() {
	if we.Store != nil {
		_ = we.Store.Close()
	}
}

// initStore opens the configured journal store. It returns nil for the
// "none" driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "churn.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for postgres (CHURN_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the journal store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil || st == nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newGateway() gateway.Gateway {
	return gateway.NewClient(cfg.Service.BaseURL,
		gateway.WithTimeout(time.Duration(cfg.Service.TimeoutSecs)*time.Second),
		gateway.WithRateLimit(cfg.Service.RateLimit, cfg.Service.RateBurst),
		gateway.WithPaths(cfg.Service.Paths),
	)
}

// initWorkflow validates the config for mode, opens the store and builds
// the controller. A non-empty sessionID resumes that journaled session.
// Callers should defer env.Close().
func initWorkflow(ctx context.Context, mode string, gw gateway.Gateway, busy workflow.Indicator, sessionID string) (*workflowEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	defaults := workflow.DefaultDefaults()
	if cfg.Session.DefaultDataset != "" {
		defaults.Dataset = cfg.Session.DefaultDataset
	}
	if cfg.Session.DefaultThresholdPct > 0 {
		defaults.ThresholdPct = cfg.Session.DefaultThresholdPct
	}

	opts := []workflow.Option{
		workflow.WithReadRetry(resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)),
		workflow.WithDefaults(defaults),
	}
	if st != nil {
		opts = append(opts, workflow.WithJournal(st))
	}
	if busy != nil {
		opts = append(opts, workflow.WithBusy(busy))
	}

	env := &workflowEnv{Store: st, Controller: workflow.New(gw, opts...)}

	if sessionID != "" {
		if err := env.Controller.Resume(ctx, sessionID); err != nil {
			env.Close()
			return nil, err
		}
	}

	zap.L().Debug("workflow environment ready",
		zap.String("mode", mode),
		zap.String("store", cfg.Store.Driver),
		zap.String("service", cfg.Service.BaseURL),
	)
	return env, nil
}
