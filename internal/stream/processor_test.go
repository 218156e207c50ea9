package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/producer"
	"github.com/saitarunaditya/truthguard/internal/types"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("test", true)
}

// fakeTranscriber returns "text:<payload>" and fails for payloads registered
// in failOn. A non-nil gate blocks calls until released or the context ends.
type fakeTranscriber struct {
	failOn map[string]bool
	gate   chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *fakeTranscriber) Upload(ctx context.Context, audio []byte) (string, error) {
	return string(audio), nil
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, handle, language string) (string, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failOn[handle] {
		return "", errors.New("backend rejected segment")
	}
	return "text:" + handle, nil
}

// fakeAnalyzer tags results with the input text.
type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(text string, meta types.AnalysisMeta) *types.AnalysisResult {
	return &types.AnalysisResult{
		Verdict:    types.VerdictHighlyCredible,
		Confidence: 100,
		Meta:       meta,
	}
}

type panicAnalyzer struct{}

func (panicAnalyzer) Analyze(string, types.AnalysisMeta) *types.AnalysisResult {
	panic("scoring blew up")
}

// chanSink delivers every sent message on a channel.
type chanSink struct {
	msgs chan any
	fail atomic.Bool
}

func newChanSink() *chanSink {
	return &chanSink{msgs: make(chan any, 64)}
}

func (s *chanSink) Send(v any) error {
	if s.fail.Load() {
		return errors.New("connection closed")
	}
	s.msgs <- v
	return nil
}

func (s *chanSink) next(t *testing.T) any {
	t.Helper()
	select {
	case m := <-s.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sink message")
		return nil
	}
}

func (s *chanSink) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case m := <-s.msgs:
		t.Fatalf("unexpected sink message %+v", m)
	case <-time.After(wait):
	}
}

// alwaysFlush makes every chunk trigger a flush.
func alwaysFlush() Config {
	return Config{
		Language:       "en",
		WindowDuration: time.Minute,
		FlushInterval:  0,
		MaxQueueLen:    32,
	}
}

func TestResultEmittedInOrderWithErrorsInBetween(t *testing.T) {
	ft := &fakeTranscriber{failOn: map[string]bool{"B": true}, gate: make(chan struct{})}
	sink := newChanSink()
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, nil, testLog())
	defer p.Close()

	// Hold the first transcription in flight while B and C queue up behind
	// it, then release everything.
	p.ProcessChunk([]byte("A"), time.Second)
	p.ProcessChunk([]byte("B"), time.Second)
	p.ProcessChunk([]byte("C"), time.Second)
	close(ft.gate)

	if m, ok := sink.next(t).(TranscriptionMessage); !ok || m.Text != "text:A" {
		t.Fatalf("first message = %+v, want result for A", m)
	}
	if m, ok := sink.next(t).(ErrorMessage); !ok || m.Error != "transcription failed" {
		t.Fatalf("second message = %+v, want error for B", m)
	}
	if m, ok := sink.next(t).(TranscriptionMessage); !ok || m.Text != "text:C" {
		t.Fatalf("third message = %+v, want result for C", m)
	}
}

func TestSingleFlightDraining(t *testing.T) {
	ft := &fakeTranscriber{gate: make(chan struct{})}
	sink := newChanSink()
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, nil, testLog())
	defer p.Close()

	for i := 0; i < 8; i++ {
		p.ProcessChunk([]byte{byte('a' + i)}, time.Second)
	}
	close(ft.gate)

	for i := 0; i < 8; i++ {
		sink.next(t)
	}
	if max := ft.maxInFlight.Load(); max != 1 {
		t.Fatalf("max concurrent transcription calls = %d, want 1", max)
	}
}

func TestEmptySegmentNotDispatched(t *testing.T) {
	ft := &fakeTranscriber{}
	sink := newChanSink()
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, nil, testLog())
	defer p.Close()

	p.ProcessChunk(nil, time.Second)
	p.ProcessChunk([]byte{}, time.Second)

	sink.expectNone(t, 50*time.Millisecond)
	if calls := ft.calls.Load(); calls != 0 {
		t.Fatalf("transcriber called %d times for empty segments", calls)
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	cfg := alwaysFlush()
	cfg.MaxQueueLen = 2

	ft := &fakeTranscriber{gate: make(chan struct{})}
	sink := newChanSink()
	p := NewProcessor(cfg, ft, fakeAnalyzer{}, sink, nil, testLog())
	defer p.Close()

	// First segment goes in flight immediately; the next three contend for
	// two queue slots, so "B" gets dropped.
	p.ProcessChunk([]byte("A"), time.Second)
	for ft.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	p.ProcessChunk([]byte("B"), time.Second)
	p.ProcessChunk([]byte("C"), time.Second)
	p.ProcessChunk([]byte("D"), time.Second)

	if n := p.QueueLen(); n != 2 {
		t.Fatalf("QueueLen = %d, want 2", n)
	}
	close(ft.gate)

	var texts []string
	for i := 0; i < 3; i++ {
		m, ok := sink.next(t).(TranscriptionMessage)
		if !ok {
			t.Fatalf("message %d is not a transcription result", i)
		}
		texts = append(texts, m.Text)
	}
	want := []string{"text:A", "text:C", "text:D"}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("texts = %v, want %v", texts, want)
		}
	}
	sink.expectNone(t, 50*time.Millisecond)
}

func TestAnalyzerPanicBecomesErrorMessage(t *testing.T) {
	ft := &fakeTranscriber{}
	sink := newChanSink()
	p := NewProcessor(alwaysFlush(), ft, panicAnalyzer{}, sink, nil, testLog())
	defer p.Close()

	p.ProcessChunk([]byte("A"), time.Second)
	p.ProcessChunk([]byte("B"), time.Second)

	for i := 0; i < 2; i++ {
		m, ok := sink.next(t).(ErrorMessage)
		if !ok {
			t.Fatalf("message %d = %+v, want analysis error", i, m)
		}
		if m.Error != "analysis failed" {
			t.Fatalf("Error = %q, want analysis failed", m.Error)
		}
	}
}

func TestCloseMidDrainSuppressesLateResult(t *testing.T) {
	ft := &fakeTranscriber{gate: make(chan struct{})}
	sink := newChanSink()
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, nil, testLog())

	p.ProcessChunk([]byte("A"), time.Second)
	for ft.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	p.Close()
	close(ft.gate)

	// The in-flight call resolves after close; nothing may reach the sink.
	sink.expectNone(t, 100*time.Millisecond)
	if p.State() != StateClosed {
		t.Fatalf("State = %s, want CLOSED", p.State())
	}
}

func TestCloseStopsProducerAndDiscardsState(t *testing.T) {
	ft := &fakeTranscriber{gate: make(chan struct{})}
	sink := newChanSink()
	src := &fakeProducer{}
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, src, testLog())

	p.ProcessChunk([]byte("A"), time.Second)
	p.ProcessChunk([]byte("B"), time.Second)
	p.Close()
	close(ft.gate)

	if !src.stopped.Load() {
		t.Fatal("producer not stopped on Close")
	}
	if p.QueueLen() != 0 {
		t.Fatalf("QueueLen after Close = %d, want 0", p.QueueLen())
	}

	// Ingestion after close is a no-op.
	p.ProcessChunk([]byte("C"), time.Second)
	sink.expectNone(t, 50*time.Millisecond)
}

func TestSinkFailureTearsDownSession(t *testing.T) {
	ft := &fakeTranscriber{}
	sink := newChanSink()
	sink.fail.Store(true)
	src := &fakeProducer{}
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, src, testLog())

	p.ProcessChunk([]byte("A"), time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for p.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatal("session not closed after sink failure")
		}
		time.Sleep(time.Millisecond)
	}
	if !src.stopped.Load() {
		t.Fatal("producer not stopped after sink failure")
	}
}

func TestStateTransitions(t *testing.T) {
	cfg := Config{
		Language:       "en",
		WindowDuration: time.Minute,
		FlushInterval:  time.Hour, // never flush
		MaxQueueLen:    4,
	}
	p := NewProcessor(cfg, &fakeTranscriber{}, fakeAnalyzer{}, newChanSink(), nil, testLog())
	defer p.Close()

	if p.State() != StateIdle {
		t.Fatalf("initial State = %s, want IDLE", p.State())
	}
	p.ProcessChunk([]byte("A"), time.Second)
	if p.State() != StateBuffering {
		t.Fatalf("State = %s, want BUFFERING", p.State())
	}
	p.Close()
	if p.State() != StateClosed {
		t.Fatalf("State = %s, want CLOSED", p.State())
	}
}

// blockingSink signals when a write begins and holds it until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	sent    atomic.Int32
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *blockingSink) Send(v any) error {
	s.entered <- struct{}{}
	<-s.release
	s.sent.Add(1)
	return nil
}

func TestCloseWaitsForInFlightSinkWrite(t *testing.T) {
	ft := &fakeTranscriber{}
	sink := newBlockingSink()
	p := NewProcessor(alwaysFlush(), ft, fakeAnalyzer{}, sink, nil, testLog())

	p.ProcessChunk([]byte("A"), time.Second)
	<-sink.entered // result for A is mid-write

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	// Close must not return while a sink write is in flight.
	select {
	case <-closed:
		t.Fatal("Close returned while a sink write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the sink write completed")
	}

	if got := sink.sent.Load(); got != 1 {
		t.Fatalf("sink writes = %d, want exactly the one in flight", got)
	}
}

// fakeProducer records Stop calls.
type fakeProducer struct {
	stopped atomic.Bool
}

func (f *fakeProducer) Start(ctx context.Context, sourceID string) (<-chan producer.Chunk, error) {
	return nil, errors.New("not used")
}

func (f *fakeProducer) Stop() { f.stopped.Store(true) }
