package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/discovery"
	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpenTracerNone(t *testing.T) {
	tracer, closeFn, err := OpenTracer("", false, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, log.NoopLogger{}, tracer)
	assert.NoError(t, closeFn())
}

func TestOpenTracerFileAndSlog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.dlog")
	var buf bytes.Buffer

	tracer, closeFn, err := OpenTracer(path, true, NewLogger("debug", &buf))
	require.NoError(t, err)
	assert.IsType(t, &log.MultiLogger{}, tracer)

	tracer.Log(log.NewFailureEvent(4, "test failure"))
	require.NoError(t, closeFn())

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	event, err := reader.Next()
	require.NoError(t, err)
	require.NotNil(t, event.Failure)
	assert.Equal(t, "test failure", event.Failure.Reason)
	assert.Contains(t, buf.String(), "reason=\"test failure\"")
}

func TestOpenTracerBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, closeFn, err := OpenTracer(filepath.Join(blocker, "trace.dlog"), false, slog.Default())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

type stubBrowser struct {
	hubs []*discovery.Hub
	err  error
}

func (b stubBrowser) FindHubs(context.Context, time.Duration) ([]*discovery.Hub, error) {
	return b.hubs, b.err
}

func TestResolveHubs(t *testing.T) {
	browser := stubBrowser{hubs: []*discovery.Hub{
		{Instance: "b", Bus: "B", Port: 9382, Addresses: []string{"10.0.1.1"}},
		{Instance: "a", Bus: "A", Port: 9382, Addresses: []string{"10.0.0.1"}},
		{Instance: "a2", Bus: "A", Port: 9382, Addresses: []string{"10.0.0.2"}},
	}}

	addrs, err := ResolveHubs(context.Background(), []string{"10.0.0.1:9382", "localhost:9382"}, browser, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1:9382", "localhost:9382", "10.0.1.1:9382"}, addrs)
}

func TestResolveHubsErrors(t *testing.T) {
	_, err := ResolveHubs(context.Background(), nil, nil, time.Second)
	assert.Error(t, err)

	_, err = ResolveHubs(context.Background(), []string{"x:1"}, stubBrowser{err: errors.New("no multicast")}, time.Second)
	assert.ErrorContains(t, err, "no multicast")
}

func TestDialLinksConnects(t *testing.T) {
	hub := transport.NewHub(transport.HubConfig{Address: "127.0.0.1:0"})
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Stop()

	links, conns := DialLinks(context.Background(), []string{hub.Addr().String()}, slog.Default())
	require.Len(t, links, 1)
	defer links[0].Close()

	assert.True(t, conns[0].IsConnected())
}
