package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/monitoring"
	"github.com/sells-group/churn-cli/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect journaled sessions and their stage events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("history"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		stats, _ := cmd.Flags().GetBool("stats")

		if stats {
			lookback, _ := cmd.Flags().GetInt("lookback")
			if lookback <= 0 {
				lookback = cfg.Monitoring.LookbackWindowHours
			}
			snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
			if err != nil {
				return eris.Wrap(err, "history stats")
			}
			if asJSON {
				return writeIndented(os.Stdout, snap)
			}
			formatStats(os.Stdout, snap)
			return nil
		}

		if sessionID != "" {
			events, err := st.ListEvents(ctx, sessionID)
			if err != nil {
				return eris.Wrap(err, "history events")
			}
			if asJSON {
				return writeIndented(os.Stdout, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(os.Stderr, "No events found.")
				return nil
			}
			formatEvents(os.Stdout, events)
			return nil
		}

		sessions, err := st.ListSessions(ctx, store.SessionFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "history sessions")
		}
		if asJSON {
			return writeIndented(os.Stdout, sessions)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}
		formatSessions(os.Stdout, sessions)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("session", "", "show the stage events of this session")
	historyCmd.Flags().Int("limit", 50, "max number of sessions to display")
	historyCmd.Flags().Bool("json", false, "print JSON instead of a table")
	historyCmd.Flags().Bool("stats", false, "summarize stage outcomes across recent sessions")
	historyCmd.Flags().Int("lookback", 0, "stats window in hours (default from config)")
	rootCmd.AddCommand(historyCmd)
}

func formatSessions(w io.Writer, sessions []model.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTAGES\tCREATED\tUPDATED")
	for _, s := range sessions {
		names := make([]string, 0, len(s.Stages))
		for _, st := range s.Stages {
			names = append(names, st.String())
		}
		stages := strings.Join(names, ",")
		if stages == "" {
			stages = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			s.ID, stages,
			s.CreatedAt.Format(time.DateTime),
			s.UpdatedAt.Format(time.DateTime),
		)
	}
	_ = tw.Flush()
}

func formatEvents(w io.Writer, events []model.StageEvent) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tSTATUS\tDURATION\tMESSAGE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			ev.CreatedAt.Format(time.DateTime),
			ev.Operation,
			ev.Status,
			(time.Duration(ev.DurationMs) * time.Millisecond).String(),
			truncate(ev.Message, 80),
		)
	}
	_ = tw.Flush()
}

func formatStats(w io.Writer, snap *monitoring.MetricsSnapshot) {
	fmt.Fprintf(w, "Sessions: %d, Events: %d, Failure rate: %.1f%% (last %dh)\n",
		snap.Sessions, snap.Events, snap.FailRate*100, snap.LookbackHours)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tSUCCEEDED\tFAILED\tREJECTED\tCANCELLED\tDEGRADED\tAVG")
	for _, op := range snap.Operations() {
		s := snap.PerOp[op]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			op, s.Succeeded, s.Failed, s.Rejected, s.Cancelled, s.Degraded,
			(time.Duration(s.AvgDurationMs()) * time.Millisecond).String(),
		)
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
