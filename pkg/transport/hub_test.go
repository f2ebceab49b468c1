package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(HubConfig{Address: "127.0.0.1:0"})
	require.NoError(t, hub.Start(context.Background()))
	t.Cleanup(func() { hub.Stop() })
	return hub
}

func dialHub(t *testing.T, hub *Hub) *HubConn {
	t.Helper()
	conn, err := Dial(context.Background(), hub.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRelaysToOtherPeers(t *testing.T) {
	hub := startHub(t)
	a := dialHub(t, hub)
	b := dialHub(t, hub)
	c := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Send([]byte("frame-1")))

	for _, conn := range []*HubConn{b, c} {
		data, err := conn.Receive()
		require.NoError(t, err)
		assert.Equal(t, "frame-1", string(data))
	}
	assert.Equal(t, uint64(1), hub.RelayedFrames())
}

func TestHubCallbacks(t *testing.T) {
	connected := make(chan string, 1)
	disconnected := make(chan string, 1)

	hub := NewHub(HubConfig{
		Address:      "127.0.0.1:0",
		OnConnect:    func(p *HubPeer) { connected <- p.ID() },
		OnDisconnect: func(p *HubPeer) { disconnected <- p.ID() },
	})
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Stop()

	conn, err := Dial(context.Background(), hub.Addr().String())
	require.NoError(t, err)

	var id string
	select {
	case id = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect not called")
	}

	conn.Close()
	select {
	case got := <-disconnected:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not called")
	}
}

func TestHubStartTwice(t *testing.T) {
	hub := startHub(t)
	assert.Error(t, hub.Start(context.Background()))
}

func TestHubConnCloseUnblocksReceive(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Receive()
		done <- err
	}()

	conn.Close()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrConnectionClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not unblock")
	}
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnectionClosed)
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
