package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/report"
	"github.com/sells-group/churn-cli/internal/workflow"
)

// script is a non-interactive workflow definition.
type script struct {
	ContinueOnError bool         `yaml:"continue_on_error"`
	Steps           []scriptStep `yaml:"steps"`
}

// scriptStep runs one operation. Params keys are the prompt parameter
// names; missing ones take their defaults.
type scriptStep struct {
	Stage  string         `yaml:"stage"`
	Params map[string]any `yaml:"params"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted churn analysis workflow",
	Example: `  churn-cli run --script workflow.yaml --export risk.xlsx

  # workflow.yaml
  steps:
    - stage: ingest
      params: {dataset: ventas_anonimizadas.csv}
    - stage: aggregate
      params: {period: month}
    - stage: risk
      params: {threshold_type: percentage, threshold: 30}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("script")
		exportPath, _ := cmd.Flags().GetString("export")

		s, err := loadScript(path)
		if err != nil {
			return err
		}

		env, err := initWorkflow(ctx, "run", newGateway(), newSpinner(os.Stderr), "")
		if err != nil {
			return err
		}
		defer env.Close()

		runErr := runScript(ctx, env.Controller, s, os.Stdout)

		if exportPath != "" {
			if err := report.ExportXLSX(exportPath, report.SnapshotTables(env.Controller.Snapshot())...); err != nil {
				if runErr == nil {
					runErr = eris.Wrap(err, "run: export")
				}
			} else {
				fmt.Fprintln(os.Stdout, "Exported to "+exportPath)
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().String("script", "", "path to a workflow YAML file")
	runCmd.Flags().String("export", "", "write results to this .xlsx path after the run")
	_ = runCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(runCmd)
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "run: read script %s", path)
	}
	return parseScript(data)
}

func parseScript(data []byte) (*script, error) {
	var s script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "run: parse script")
	}
	if len(s.Steps) == 0 {
		return nil, eris.New("run: script has no steps")
	}
	for i, step := range s.Steps {
		if _, ok := workflow.ParseOp(step.Stage); !ok {
			return nil, eris.Errorf("run: step %d: unknown stage %q", i+1, step.Stage)
		}
	}
	return &s, nil
}

// runScript executes the steps in order. It stops at the first failure
// unless the script continues on error, in which case the failures are
// counted and reported at the end.
func runScript(ctx context.Context, c *workflow.Controller, s *script, out io.Writer) error {
	failed := 0
	for i, step := range s.Steps {
		op, _ := workflow.ParseOp(step.Stage)
		fmt.Fprintf(out, "== Step %d: %s\n", i+1, op.Title())

		res, err := c.Invoke(ctx, op, params.Map(step.Params))
		if err != nil {
			fmt.Fprintln(out, workflow.UserMessage(err))
			zap.L().Warn("run: step failed",
				zap.Int("step", i+1),
				zap.String("stage", step.Stage),
				zap.Error(err),
			)
			if !s.ContinueOnError {
				return eris.Wrapf(err, "run: step %d (%s)", i+1, step.Stage)
			}
			failed++
			continue
		}
		if err := report.WriteResult(out, res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return eris.Errorf("run: %d of %d steps failed", failed, len(s.Steps))
	}
	return nil
}
