package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dynalloc/dynalloc-go/pkg/log"
)

var csvHeader = []string{"timestamp", "node_id", "layer", "category", "type", "argument"}

// RunExport writes the matching events of a trace file as JSON lines
// ("jsonl") or as CSV ("csv"). An empty output writes to stdout.
func RunExport(path, format, output string, filter log.Filter) error {
	var write func(w io.Writer, events func(func(log.Event) error) error) error
	switch format {
	case "jsonl":
		write = writeJSONL
	case "csv":
		write = writeCSV
	default:
		return fmt.Errorf("unknown format %q (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	return write(w, func(fn func(log.Event) error) error { return eachEvent(reader, fn) })
}

// eachEvent calls fn for every remaining event of reader.
func eachEvent(reader *log.Reader, fn func(log.Event) error) error {
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

func writeJSONL(w io.Writer, events func(func(log.Event) error) error) error {
	enc := json.NewEncoder(w)
	return events(func(e log.Event) error { return enc.Encode(e) })
}

func writeCSV(w io.Writer, events func(func(log.Event) error) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	err := events(func(e log.Event) error {
		return cw.Write([]string{
			e.Timestamp.UTC().Format(timestampFormat),
			e.NodeID.String(),
			e.Layer.String(),
			e.Category.String(),
			eventLabel(e),
			eventArgument(e),
		})
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

func eventArgument(e log.Event) string {
	switch {
	case e.Frame != nil:
		return e.Frame.DataType.String()
	case e.Trace != nil:
		return strconv.FormatInt(e.Trace.Argument, 10)
	case e.StateChange != nil:
		return e.StateChange.NewState
	case e.Failure != nil:
		return e.Failure.Reason
	}
	return ""
}
