package log

// Logger receives trace events. Pass NoopLogger to disable capture.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and
	// must not block for long; events are emitted from event loops.
	Log(event Event)
}

// NoopLogger discards all events. Usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
