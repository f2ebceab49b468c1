// Package interactive provides the operator console of allocd.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/dynalloc/dynalloc-go/pkg/allocator"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

const queryTimeout = 2 * time.Second

// Server is the allocator view the console needs. Calls happen on the
// node's event loop.
type Server interface {
	Status() allocator.Status
	Entries() []nodeid.EntryInfo
}

// Loop runs functions on the node's event loop.
type Loop interface {
	Do(ctx context.Context, fn func()) error
}

// Console handles interactive mode for allocd.
type Console struct {
	srv  Server
	loop Loop
	rl   *readline.Instance
}

// New creates a console.
func New(srv Server, loop Loop) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "allocd> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{srv: srv, loop: loop, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the prompt. Use it for log
// output.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the command loop. It returns when the user quits or ctx is
// done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	printHelp(c.rl.Stdout())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		if quit := c.execute(ctx, c.rl.Stdout(), strings.ToLower(parts[0]), parts[1:]); quit {
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command and reports whether the console should exit.
func (c *Console) execute(ctx context.Context, w io.Writer, cmd string, args []string) bool {
	switch cmd {
	case "help", "?":
		printHelp(w)
	case "status", "s":
		var st allocator.Status
		if c.query(ctx, w, func() { st = c.srv.Status() }) {
			formatStatus(w, st)
		}
	case "log", "l":
		limit := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				fmt.Fprintf(w, "Invalid count: %s\n", args[0])
				return false
			}
			limit = n
		}
		var entries []nodeid.EntryInfo
		if c.query(ctx, w, func() { entries = c.srv.Entries() }) {
			formatEntries(w, entries, limit)
		}
	case "failures", "f":
		var st allocator.Status
		if c.query(ctx, w, func() { st = c.srv.Status() }) {
			fmt.Fprintf(w, "Internal failures: %d\n", st.InternalFailures)
		}
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) query(ctx context.Context, w io.Writer, fn func()) bool {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := c.loop.Do(ctx, fn); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}
	return true
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `
allocd Commands:
  status             - Show consensus and allocation status
  log [n]            - Show the allocation log (last n entries)
  failures           - Show the internal failure count
  help               - Show this help
  quit               - Exit`)
}

func formatStatus(w io.Writer, st allocator.Status) {
	fmt.Fprintf(w, "Node ID:       %d\n", st.NodeID)
	fmt.Fprintf(w, "State:         %s (term %d)\n", st.State, st.Term)
	if st.Leader != 0 {
		fmt.Fprintf(w, "Leader:        %d\n", st.Leader)
	} else {
		fmt.Fprintln(w, "Leader:        unknown")
	}
	fmt.Fprintf(w, "Cluster:       %d known of %d", len(st.KnownServers)+1, st.ClusterSize)
	if len(st.KnownServers) > 0 {
		ids := make([]string, len(st.KnownServers))
		for i, id := range st.KnownServers {
			ids[i] = id.String()
		}
		fmt.Fprintf(w, " (peers %s)", strings.Join(ids, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Log:           %d entries, commit %d of %d\n", st.Allocations, st.CommitIndex, st.LastIndex)
	fmt.Fprintf(w, "Failures:      %d\n", st.InternalFailures)
}

func formatEntries(w io.Writer, entries []nodeid.EntryInfo, limit int) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No allocations.")
		return
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	fmt.Fprintf(w, "%-6s %-34s %-6s %s\n", "TERM", "UNIQUE ID", "NODE", "")
	for _, e := range entries {
		mark := "committed"
		if !e.Committed {
			mark = "pending"
		}
		fmt.Fprintf(w, "%-6d %-34s %-6d %s\n", e.Entry.Term, e.Entry.UniqueID, e.Entry.NodeID, mark)
	}
}
