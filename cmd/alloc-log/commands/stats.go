package commands

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Nodes            map[nodeid.NodeID]*NodeStats
	Failures         map[string]int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// NodeStats holds statistics for a single node.
type NodeStats struct {
	Events       int
	StateChanges int
	LastState    string
	LastTerm     uint32
	Commits      int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Nodes:            make(map[nodeid.NodeID]*NodeStats),
		Failures:         make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		ns, ok := stats.Nodes[event.NodeID]
		if !ok {
			ns = &NodeStats{}
			stats.Nodes[event.NodeID] = ns
		}
		ns.Events++

		switch {
		case event.StateChange != nil:
			ns.StateChanges++
			ns.LastState = event.StateChange.NewState
			ns.LastTerm = event.StateChange.Term
		case event.Trace != nil && event.Trace.Code == log.TraceRaftNewEntryCommitted:
			ns.Commits++
		case event.Failure != nil:
			stats.Failures[event.Failure.Reason]++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Allocation Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerBus, log.LayerRaft, log.LayerAllocation} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryFrame, log.CategoryTrace, log.CategoryState, log.CategoryFailure} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	ids := make([]nodeid.NodeID, 0, len(stats.Nodes))
	for id := range stats.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fmt.Fprintf(w, "Nodes: %d\n", len(ids))
	for _, id := range ids {
		ns := stats.Nodes[id]
		fmt.Fprintf(w, "  [%s] %d events", id, ns.Events)
		if ns.StateChanges > 0 {
			fmt.Fprintf(w, ", %d role changes, last %s in term %d", ns.StateChanges, ns.LastState, ns.LastTerm)
		}
		if ns.Commits > 0 {
			fmt.Fprintf(w, ", %d commits", ns.Commits)
		}
		fmt.Fprintln(w)
	}

	if len(stats.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		reasons := make([]string, 0, len(stats.Failures))
		for r := range stats.Failures {
			reasons = append(reasons, r)
		}
		slices.Sort(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-40s %d\n", r, stats.Failures[r])
		}
	}
}
