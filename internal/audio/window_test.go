package audio

import (
	"bytes"
	"testing"
	"time"
)

// windowAt returns a window with a controllable clock.
func windowAt(maxDuration, flushInterval time.Duration) (*Window, *time.Time) {
	start := time.Unix(1700000000, 0)
	now := start
	w := &Window{
		maxDuration:   maxDuration,
		flushInterval: flushInterval,
		now:           func() time.Time { return now },
	}
	w.lastFlush = now
	return w, &now
}

func TestAddEvictsOldestWhenOverWindow(t *testing.T) {
	w, _ := windowAt(3*time.Second, time.Hour)

	w.Add([]byte("a"), time.Second)
	w.Add([]byte("b"), time.Second)
	w.Add([]byte("c"), time.Second)
	w.Add([]byte("d"), time.Second)

	if w.Duration() != 3*time.Second {
		t.Fatalf("Duration = %v, want 3s", w.Duration())
	}
	if got := w.Bytes(); !bytes.Equal(got, []byte("bcd")) {
		t.Fatalf("Bytes = %q, want bcd (oldest evicted first)", got)
	}
}

func TestDurationNeverExceedsMaxAfterAdd(t *testing.T) {
	w, _ := windowAt(2*time.Second, time.Hour)

	durations := []time.Duration{
		300 * time.Millisecond, time.Second, 900 * time.Millisecond,
		2 * time.Second, 100 * time.Millisecond, 1500 * time.Millisecond,
	}
	for i, d := range durations {
		w.Add([]byte{byte(i)}, d)
		if w.Duration() > 2*time.Second {
			t.Fatalf("after add %d: Duration = %v exceeds max", i, w.Duration())
		}
	}
}

func TestOversizedChunkEvictsEverything(t *testing.T) {
	w, _ := windowAt(time.Second, time.Hour)

	w.Add([]byte("small"), 500*time.Millisecond)
	w.Add([]byte("huge"), 5*time.Second)

	// A single chunk larger than the window cannot be kept either.
	if w.Len() != 0 {
		t.Fatalf("Len = %d, want 0", w.Len())
	}
	if w.Duration() != 0 {
		t.Fatalf("Duration = %v, want 0", w.Duration())
	}
}

func TestFlushReadinessIsTimeBased(t *testing.T) {
	w, now := windowAt(time.Minute, 5*time.Second)

	if w.Add([]byte("a"), time.Second) {
		t.Fatal("flush-ready immediately after creation")
	}

	*now = now.Add(3 * time.Second)
	if w.Add([]byte("b"), time.Second) {
		t.Fatal("flush-ready before interval elapsed")
	}

	*now = now.Add(2 * time.Second)
	if !w.Add([]byte("c"), time.Second) {
		t.Fatal("not flush-ready after interval elapsed")
	}
}

func TestBytesRecordsFlushTimestamp(t *testing.T) {
	w, now := windowAt(time.Minute, 5*time.Second)

	*now = now.Add(6 * time.Second)
	if !w.Add([]byte("a"), time.Second) {
		t.Fatal("expected flush-ready")
	}

	w.Bytes()

	// The interval restarts from the Bytes call.
	*now = now.Add(3 * time.Second)
	if w.Add([]byte("b"), time.Second) {
		t.Fatal("flush-ready again before a full interval since last flush")
	}
	*now = now.Add(2 * time.Second)
	if !w.Add([]byte("c"), time.Second) {
		t.Fatal("not flush-ready a full interval after last flush")
	}
}

func TestBytesDoesNotClear(t *testing.T) {
	w, _ := windowAt(time.Minute, time.Hour)

	w.Add([]byte("ab"), time.Second)
	w.Add([]byte("cd"), time.Second)

	first := w.Bytes()
	second := w.Bytes()
	if !bytes.Equal(first, []byte("abcd")) || !bytes.Equal(second, []byte("abcd")) {
		t.Fatalf("Bytes = %q then %q, want abcd twice", first, second)
	}

	w.Clear()
	if got := w.Bytes(); len(got) != 0 {
		t.Fatalf("Bytes after Clear = %q, want empty", got)
	}
}

func TestEmptyWindowBytes(t *testing.T) {
	w, _ := windowAt(time.Minute, time.Hour)
	if got := w.Bytes(); len(got) != 0 {
		t.Fatalf("Bytes on empty window = %q, want empty", got)
	}
}
