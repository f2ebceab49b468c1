package transport

import (
	"errors"
	"testing"
	"time"
)

func receiveWithin(t *testing.T, l *MemoryLink, d time.Duration) ([]byte, bool) {
	t.Helper()
	select {
	case data := <-l.queue:
		return data, true
	case <-time.After(d):
		return nil, false
	}
}

func TestMemoryBusBroadcast(t *testing.T) {
	bus := NewMemoryBus()
	a, b, c := bus.Attach(), bus.Attach(), bus.Attach()
	defer a.Close()
	defer b.Close()
	defer c.Close()

	if err := a.Send([]byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	for name, l := range map[string]*MemoryLink{"b": b, "c": c} {
		data, ok := receiveWithin(t, l, time.Second)
		if !ok || string(data) != "hello" {
			t.Errorf("%s: got %q, %v", name, data, ok)
		}
	}

	// The sender never receives its own frame.
	if _, ok := receiveWithin(t, a, 50*time.Millisecond); ok {
		t.Error("sender received its own frame")
	}
}

func TestMemoryBusPartition(t *testing.T) {
	bus := NewMemoryBus()
	a, b, c := bus.Attach(), bus.Attach(), bus.Attach()

	bus.Partition([]*MemoryLink{a, b}, []*MemoryLink{c})

	a.Send([]byte("x"))
	if _, ok := receiveWithin(t, b, time.Second); !ok {
		t.Error("b should receive from a")
	}
	if _, ok := receiveWithin(t, c, 50*time.Millisecond); ok {
		t.Error("c should not receive from a")
	}

	bus.Heal()
	a.Send([]byte("y"))
	if data, ok := receiveWithin(t, c, time.Second); !ok || string(data) != "y" {
		t.Errorf("c after heal: got %q, %v", data, ok)
	}
}

func TestMemoryBusIsolation(t *testing.T) {
	bus := NewMemoryBus()
	a, b := bus.Attach(), bus.Attach()

	bus.Partition([]*MemoryLink{a})
	b.Send([]byte("x"))
	if _, ok := receiveWithin(t, a, 50*time.Millisecond); ok {
		t.Error("unlisted link should be isolated")
	}
}

func TestMemoryLinkClose(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.Attach()

	done := make(chan error, 1)
	go func() {
		_, err := a.Receive()
		done <- err
	}()

	a.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("got %v, want ErrConnectionClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock")
	}

	if err := a.Send([]byte("x")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Send after close: got %v", err)
	}
}

func TestMemoryBusDropsOnFullQueue(t *testing.T) {
	bus := NewMemoryBus()
	a, b := bus.Attach(), bus.Attach()
	defer b.Close()

	for i := 0; i < DefaultMemoryQueueSize+5; i++ {
		a.Send([]byte{byte(i)})
	}
	if bus.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", bus.Dropped())
	}
}
