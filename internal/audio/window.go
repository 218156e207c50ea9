package audio

import (
	"time"
)

// segment is one accepted audio chunk: its payload, declared duration, and
// arrival time.
type segment struct {
	payload   []byte
	duration  time.Duration
	arrivedAt time.Time
}

// Window accumulates timestamped audio chunks into a bounded sliding window.
// Oldest chunks are evicted once the accumulated duration exceeds the window
// maximum. Flush readiness is time-based: Add reports true once the
// configured minimum interval has elapsed since the last flush, independent
// of how much audio has accumulated, which bounds the external-call rate
// under bursty arrival.
//
// Window is not safe for concurrent use; it is owned by a single stream
// processor.
type Window struct {
	maxDuration   time.Duration
	flushInterval time.Duration

	segments []segment
	total    time.Duration

	lastFlush time.Time
	now       func() time.Time
}

// NewWindow creates a window holding at most maxDuration of audio that
// becomes flush-ready every flushInterval of wall-clock time. The interval
// timer starts at creation, so the first flush happens no earlier than
// flushInterval after the window is built.
func NewWindow(maxDuration, flushInterval time.Duration) *Window {
	w := &Window{
		maxDuration:   maxDuration,
		flushInterval: flushInterval,
		now:           time.Now,
	}
	w.lastFlush = w.now()
	return w
}

// Add appends a chunk, evicts from the front while the accumulated duration
// exceeds the window maximum, and returns whether a flush should occur now.
func (w *Window) Add(payload []byte, duration time.Duration) bool {
	now := w.now()

	w.segments = append(w.segments, segment{
		payload:   payload,
		duration:  duration,
		arrivedAt: now,
	})
	w.total += duration

	for len(w.segments) > 0 && w.total > w.maxDuration {
		w.total -= w.segments[0].duration
		w.segments[0].payload = nil
		w.segments = w.segments[1:]
	}

	return now.Sub(w.lastFlush) >= w.flushInterval
}

// Bytes concatenates all held payloads in arrival order and records the
// flush timestamp. It does not clear the window: callers must Clear after
// successfully dispatching the returned bytes, otherwise the same audio is
// re-emitted on the next flush. An empty window yields an empty payload.
func (w *Window) Bytes() []byte {
	w.lastFlush = w.now()

	size := 0
	for _, s := range w.segments {
		size += len(s.payload)
	}
	buf := make([]byte, 0, size)
	for _, s := range w.segments {
		buf = append(buf, s.payload...)
	}
	return buf
}

// Clear drops all held segments.
func (w *Window) Clear() {
	w.segments = nil
	w.total = 0
}

// Duration returns the accumulated duration of all held segments.
func (w *Window) Duration() time.Duration {
	return w.total
}

// Len returns the number of held segments.
func (w *Window) Len() int {
	return len(w.segments)
}
