// Package monitoring summarizes the session journal and raises alerts when
// stage failures pile up.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/churn-cli/internal/model"
	"github.com/sells-group/churn-cli/internal/store"
)

// maxSessions bounds how many recent sessions a collection scans.
const maxSessions = 1000

// OpStats counts the journaled outcomes of one operation.
type OpStats struct {
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	Rejected        int   `json:"rejected"`
	Cancelled       int   `json:"cancelled"`
	Degraded        int   `json:"degraded"`
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// Total is the number of recorded requests.
func (s OpStats) Total() int {
	return s.Succeeded + s.Failed + s.Rejected + s.Cancelled + s.Degraded
}

// AvgDurationMs is the mean request duration.
func (s OpStats) AvgDurationMs() int64 {
	if s.Total() == 0 {
		return 0
	}
	return s.TotalDurationMs / int64(s.Total())
}

// MetricsSnapshot holds a point-in-time view of workflow health.
type MetricsSnapshot struct {
	Sessions int `json:"sessions"`
	Events   int `json:"events"`

	// Finished counts requests that reached the analytics service:
	// succeeded, failed and degraded.
	Finished int     `json:"finished"`
	Failed   int     `json:"failed"`
	Degraded int     `json:"degraded"`
	FailRate float64 `json:"fail_rate"`

	PerOp map[string]OpStats `json:"per_op"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Operations returns the operation names present in the snapshot, sorted.
func (s *MetricsSnapshot) Operations() []string {
	out := make([]string, 0, len(s.PerOp))
	for op := range s.PerOp {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// EventSource is the part of the journal the collector reads.
type EventSource interface {
	ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error)
	ListEvents(ctx context.Context, sessionID string) ([]model.StageEvent, error)
}

// Collector gathers metrics from the session journal.
type Collector struct {
	source EventSource
}

// NewCollector creates a new metrics collector.
func NewCollector(src EventSource) *Collector {
	return &Collector{source: src}
}

// Collect gathers a snapshot of stage outcomes over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		PerOp:         make(map[string]OpStats),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	sessions, err := c.source.ListSessions(ctx, store.SessionFilter{Limit: maxSessions})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}

	for _, sess := range sessions {
		if sess.UpdatedAt.Before(cutoff) {
			continue
		}
		events, err := c.source.ListEvents(ctx, sess.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: list events %s", sess.ID)
		}
		counted := false
		for _, ev := range events {
			if ev.CreatedAt.Before(cutoff) {
				continue
			}
			counted = true
			snap.Events++

			stats := snap.PerOp[ev.Operation]
			stats.TotalDurationMs += ev.DurationMs
			switch ev.Status {
			case model.EventSucceeded:
				stats.Succeeded++
				snap.Finished++
			case model.EventFailed:
				stats.Failed++
				snap.Failed++
				snap.Finished++
			case model.EventDegraded:
				stats.Degraded++
				snap.Degraded++
				snap.Finished++
			case model.EventRejected:
				stats.Rejected++
			case model.EventCancelled:
				stats.Cancelled++
			}
			snap.PerOp[ev.Operation] = stats
		}
		if counted {
			snap.Sessions++
		}
	}

	if snap.Finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(snap.Finished)
	}
	return snap, nil
}
