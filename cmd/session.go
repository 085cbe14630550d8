package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/churn-cli/internal/params"
	"github.com/sells-group/churn-cli/internal/report"
	"github.com/sells-group/churn-cli/internal/workflow"
)

const defaultExportPath = "churn-report.xlsx"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive churn analysis session",
	Long:  "Reads stage commands from stdin and prompts for their parameters. Type 'help' for the command list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		resume, _ := cmd.Flags().GetString("resume")
		env, err := initWorkflow(ctx, "session", newGateway(), newSpinner(os.Stderr), resume)
		if err != nil {
			return err
		}
		defer env.Close()

		return runREPL(ctx, env.Controller, os.Stdin, os.Stdout)
	},
}

func init() {
	sessionCmd.Flags().String("resume", "", "resume a journaled session by ID")
	rootCmd.AddCommand(sessionCmd)
}

const replHelp = `Commands:
  ingest             load a dataset
  aggregate          aggregate purchases by period
  visualize          show a customer's purchase trend
  risk               identify at-risk customers (rule-based)
  predict            train the churn model and predict
  analyze            analyze one customer
  status             show the current results
  export [path]      write results to an .xlsx workbook
  help               show this list
  quit               end the session
Answer a prompt with ` + params.CancelWord + ` to abandon the stage.
`

// runREPL reads commands from in until quit or end of input.
func runREPL(ctx context.Context, c *workflow.Controller, in io.Reader, out io.Writer) error {
	p := params.NewPrompt(in, out)
	fmt.Fprintln(out, "churn-cli session. Type 'help' for commands.")

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := p.ReadLine(fmt.Sprintf("churn [%s]> ", c.Stage()))
		if params.IsCancelled(err) {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch name := strings.ToLower(fields[0]); name {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprint(out, replHelp)
		case "status":
			if err := report.WriteSnapshot(out, c.Snapshot()); err != nil {
				return err
			}
		case "export":
			path := defaultExportPath
			if len(fields) > 1 {
				path = fields[1]
			}
			if err := report.ExportXLSX(path, report.SnapshotTables(c.Snapshot())...); err != nil {
				fmt.Fprintln(out, "Export Failed: "+err.Error())
				continue
			}
			fmt.Fprintln(out, "Exported to "+path)
		default:
			op, ok := workflow.ParseOp(name)
			if !ok {
				fmt.Fprintf(out, "Unknown command %q. Type 'help' for commands.\n", name)
				continue
			}
			res, err := c.Invoke(ctx, op, p)
			if err != nil {
				fmt.Fprintln(out, workflow.UserMessage(err))
				continue
			}
			if err := report.WriteResult(out, res); err != nil {
				return err
			}
		}
	}
}
