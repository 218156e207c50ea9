package producer

import (
	"context"
	"time"
)

// Chunk is one span of raw audio delivered by a producer.
type Chunk struct {
	Payload  []byte
	Duration time.Duration
}

// Producer is an opaque audio chunk source keyed by a source identifier.
// Start begins delivery on the returned channel; the channel is closed when
// the source ends or Stop is called. Stop must terminate the underlying
// source synchronously and is safe to call more than once.
type Producer interface {
	Start(ctx context.Context, sourceID string) (<-chan Chunk, error)
	Stop()
}
