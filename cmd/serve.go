package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/churn-cli/internal/gateway"
	"github.com/sells-group/churn-cli/internal/monitoring"
	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/workflow"
)

// maxBodyBytes caps a request's parameter document.
const maxBodyBytes = 1 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the churn workflow as an HTTP JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initWorkflow(ctx, "serve", newGateway(), nil, "")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.WebhookURL != "" && env.Store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env.Controller, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// stageRoutes lists the operations reachable through POST /stages/{op}.
var stageRoutes = map[workflow.Op]bool{
	workflow.OpIngest:    true,
	workflow.OpAggregate: true,
	workflow.OpVisualize: true,
	workflow.OpRisk:      true,
	workflow.OpPredict:   true,
}

type stageResponse struct {
	Operation workflow.Op `json:"operation"`
	Stage     string      `json:"stage"`
	Result    any         `json:"result"`
}

type analysisResponse struct {
	Stage    string `json:"stage"`
	Analysis any    `json:"analysis"`
	Outcome  string `json:"outcome"`
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}

func buildRouter(c *workflow.Controller, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, c.Snapshot())
	})

	r.Post("/stages/{op}", func(w http.ResponseWriter, req *http.Request) {
		op, ok := workflow.ParseOp(chi.URLParam(req, "op"))
		if !ok || !stageRoutes[op] {
			writeError(w, http.StatusNotFound, "unknown stage "+chi.URLParam(req, "op"))
			return
		}
		src, err := decodeParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := c.Invoke(req.Context(), op, src)
		if err != nil {
			writeOpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stageResponse{Operation: op, Stage: c.Stage().String(), Result: res})
	})

	r.Post("/customers/{id}/analysis", func(w http.ResponseWriter, req *http.Request) {
		src, err := decodeParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		src[workflow.ParamCustomerID] = chi.URLParam(req, "id")

		res, err := c.AnalyzeCustomer(req.Context(), src)
		if err != nil {
			writeOpError(w, err)
			return
		}
		resp := analysisResponse{
			Stage:    c.Stage().String(),
			Analysis: res.Analysis,
			Outcome:  res.Outcome.String(),
			Degraded: res.EnrichmentFailed(),
		}
		if res.EnrichmentFailed() {
			resp.Warning = workflow.UserMessage(res.EnrichmentErr)
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

// decodeParams reads an optional JSON object of stage parameters.
func decodeParams(req *http.Request) (params.Map, error) {
	src := params.Map{}
	if req.Body == nil {
		return src, nil
	}
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(&src); err != nil {
		if errors.Is(err, io.EOF) {
			return params.Map{}, nil
		}
		return nil, eris.New("invalid request body")
	}
	if src == nil {
		src = params.Map{}
	}
	return src, nil
}

// statusFor maps an operation failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case workflow.IsStageOrder(err):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrStaleResult):
		return http.StatusConflict
	case params.IsCancelled(err), params.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, workflow.ErrInvalidResponse):
		return http.StatusBadGateway
	}
	if _, ok := gateway.AsServiceError(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeOpError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), workflow.UserMessage(err))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("serve: write response", zap.Error(err))
	}
}
