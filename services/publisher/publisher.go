package publisher

// Publisher pushes newly collected events to downstream consumers
type Publisher interface {
	// Publish publishes a message keyed by source name
	Publish(key string, message []byte) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream() error

	// Close closes the publisher connection
	Close() error
}

// Noop is a Publisher that discards everything. Used when no Redis is
// configured and in tests.
type Noop struct{}

func (Noop) Publish(string, []byte) error { return nil }
func (Noop) TrimStream() error            { return nil }
func (Noop) Close() error                 { return nil }
