package commands

import (
	"fmt"
	"io"

	"github.com/dynalloc/dynalloc-go/pkg/log"
)

const timestampFormat = "2006-01-02T15:04:05.000000Z"

// RunView prints the matching events of the trace file in human-readable
// form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one event as a header line plus details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampFormat)
	fmt.Fprintf(w, "%s [node:%s] %-10s %s\n", ts, event.NodeID, event.Layer, eventLabel(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Trace != nil:
		fmt.Fprintf(w, "  Argument: %d\n", event.Trace.Argument)
	case event.StateChange != nil:
		fmt.Fprintf(w, "  %s -> %s (term %d)\n", event.StateChange.OldState, event.StateChange.NewState, event.StateChange.Term)
	case event.Failure != nil:
		fmt.Fprintf(w, "  Reason: %s\n", event.Failure.Reason)
	}
}

func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame " + event.Frame.Direction.String()
	case event.Trace != nil:
		return event.Trace.Code.String()
	case event.StateChange != nil:
		return "State"
	case event.Failure != nil:
		return "Failure"
	default:
		return "Unknown"
	}
}

func formatFrameDetails(w io.Writer, f *log.FrameEvent) {
	fmt.Fprintf(w, "  %s %s iface=%d src=%s", f.Kind, f.DataType, f.Interface, f.Source)
	if f.Destination != 0 {
		fmt.Fprintf(w, " dst=%s", f.Destination)
	}
	fmt.Fprintf(w, " tid=%d size=%d", f.TransferID, f.Size)
	if f.Duplicate {
		fmt.Fprint(w, " (duplicate)")
	}
	fmt.Fprintln(w)
}
