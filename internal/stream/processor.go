package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/audio"
	"github.com/saitarunaditya/truthguard/internal/metrics"
	"github.com/saitarunaditya/truthguard/internal/producer"
	"github.com/saitarunaditya/truthguard/internal/types"
)

// State is the lifecycle state of a Processor.
type State string

const (
	StateIdle       State = "IDLE"
	StateBuffering  State = "BUFFERING"
	StateFlushReady State = "FLUSH_READY"
	StateDraining   State = "DRAINING"
	StateEmitted    State = "EMITTED"
	StateClosed     State = "CLOSED"
)

// Sink receives outbound session messages. The live implementation wraps a
// websocket connection.
type Sink interface {
	Send(v any) error
}

// Transcriber is the external transcription collaborator: upload bytes, then
// transcribe the returned handle.
type Transcriber interface {
	Upload(ctx context.Context, audio []byte) (string, error)
	Transcribe(ctx context.Context, handle, language string) (string, error)
}

// Analyzer scores transcribed text.
type Analyzer interface {
	Analyze(text string, meta types.AnalysisMeta) *types.AnalysisResult
}

// TranscriptionMessage is the outbound result message for one segment.
type TranscriptionMessage struct {
	Type      string                `json:"type"`
	Text      string                `json:"text"`
	Analysis  *types.AnalysisResult `json:"analysis"`
	Timestamp int64                 `json:"timestamp"`
}

// StatusMessage is an informational outbound message.
type StatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorMessage reports a per-segment or session failure to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// queueEntry is one flushed segment awaiting transcription.
type queueEntry struct {
	payload   []byte
	flushedAt time.Time
}

// Config holds per-session processor settings. Metrics may be nil.
type Config struct {
	Language       string
	WindowDuration time.Duration
	FlushInterval  time.Duration
	MaxQueueLen    int
	Metrics        *metrics.Metrics
}

// Processor drives one live session: it owns a sliding window buffer and a
// bounded FIFO segment queue, serializes submission of flushed segments to
// the transcriber (at most one call in flight per session), feeds results
// through the analyzer, and emits ordered messages to the sink.
//
// All ingestion goes through ProcessChunk. The drain loop runs in its own
// goroutine and is idempotent against concurrent kicks: results are emitted
// in flush order, and one segment's failure never stalls the next.
type Processor struct {
	transcriber Transcriber
	analyzer    Analyzer
	sink        Sink
	source      producer.Producer
	log         *logrus.Entry
	config      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	window   *audio.Window
	queue    []queueEntry
	draining bool
	state    State
	closed   bool

	// sendMu makes the closed-check and the sink write one atomic unit
	// against Close: once Close returns, nothing reaches the sink.
	sendMu sync.Mutex
}

// NewProcessor creates a processor for one live session. source may be nil
// when the caller manages the producer lifecycle itself.
func NewProcessor(cfg Config, transcriber Transcriber, analyzer Analyzer, sink Sink, source producer.Producer, log *logrus.Entry) *Processor {
	if cfg.MaxQueueLen <= 0 {
		cfg.MaxQueueLen = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		transcriber: transcriber,
		analyzer:    analyzer,
		sink:        sink,
		source:      source,
		log:         log,
		config:      cfg,
		ctx:         ctx,
		cancel:      cancel,
		window:      audio.NewWindow(cfg.WindowDuration, cfg.FlushInterval),
		state:       StateIdle,
	}
}

// State returns the current session state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QueueLen returns the number of pending segments.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ProcessChunk is the only ingestion entry point. It buffers the chunk and,
// when the window reports flush readiness, moves the buffered audio onto the
// queue as one segment and kicks the drain loop if it is not already
// running.
func (p *Processor) ProcessChunk(payload []byte, duration time.Duration) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.state == StateIdle || p.state == StateEmitted {
		p.state = StateBuffering
	}
	if m := p.config.Metrics; m != nil {
		m.ChunksReceived.Inc()
	}

	flush := p.window.Add(payload, duration)
	if !flush {
		p.mu.Unlock()
		return
	}
	p.state = StateFlushReady

	// Flush transaction: extract then clear, as one unit.
	segment := p.window.Bytes()
	p.window.Clear()

	if len(segment) == 0 {
		// Nothing buffered; never dispatch empty segments downstream.
		p.state = StateBuffering
		p.mu.Unlock()
		return
	}

	if len(p.queue) >= p.config.MaxQueueLen {
		// Lossy under overload: drop the oldest pending segment rather than
		// grow without bound. Live transcription is best-effort.
		dropped := p.queue[0]
		p.queue = p.queue[1:]
		p.log.WithFields(logrus.Fields{
			"flushed_at": dropped.flushedAt,
			"queue_max":  p.config.MaxQueueLen,
		}).Warn("segment queue full, dropping oldest pending segment")
		if m := p.config.Metrics; m != nil {
			m.SegmentsDropped.Inc()
		}
	}
	p.queue = append(p.queue, queueEntry{payload: segment, flushedAt: time.Now()})
	if m := p.config.Metrics; m != nil {
		m.SegmentsFlushed.Inc()
	}

	kick := !p.draining
	if kick {
		p.draining = true
		p.state = StateDraining
	}
	p.mu.Unlock()

	if kick {
		go p.drain()
	}
}

// drain processes queued segments one at a time until the queue is empty.
// Exactly one drain loop runs at a time, which guarantees at most one
// transcription call in flight and chronological ordering of emitted
// outcomes. Iterative on purpose: recursion would grow the stack under
// sustained load.
func (p *Processor) drain() {
	for {
		p.mu.Lock()
		if p.closed || len(p.queue) == 0 {
			p.draining = false
			p.mu.Unlock()
			return
		}
		entry := p.queue[0]
		p.queue = p.queue[1:]
		p.state = StateDraining
		p.mu.Unlock()

		p.processSegment(entry)
	}
}

// processSegment transcribes, analyzes, and emits one segment. Failures are
// reported to the sink as error messages and never halt the loop; only a
// sink failure tears the session down.
func (p *Processor) processSegment(entry queueEntry) {
	text, err := p.transcribe(entry.payload)
	if err != nil {
		if p.ctx.Err() != nil {
			// Session closed mid-call; the abandoned result is ignored.
			return
		}
		p.log.WithError(err).Warn("segment transcription failed")
		p.emit(ErrorMessage{Type: "error", Error: "transcription failed", Details: err.Error()})
		return
	}

	result, err := p.analyze(text, entry.flushedAt)
	if err != nil {
		p.log.WithError(err).Error("credibility analysis failed")
		p.emit(ErrorMessage{Type: "error", Error: "analysis failed", Details: err.Error()})
		return
	}

	p.emit(TranscriptionMessage{
		Type:      "transcription",
		Text:      text,
		Analysis:  result,
		Timestamp: entry.flushedAt.UnixMilli(),
	})
}

func (p *Processor) transcribe(payload []byte) (string, error) {
	m := p.config.Metrics
	if m != nil {
		m.TranscriptionRequests.Inc()
	}
	start := time.Now()

	handle, err := p.transcriber.Upload(p.ctx, payload)
	if err == nil {
		var text string
		text, err = p.transcriber.Transcribe(p.ctx, handle, p.config.Language)
		if err == nil {
			if m != nil {
				m.TranscriptionDuration.Observe(time.Since(start).Seconds())
			}
			return text, nil
		}
	}

	if m != nil {
		m.TranscriptionFailures.Inc()
	}
	return "", err
}

// analyze wraps the analyzer call so a panic in scoring is contained to the
// segment instead of killing the drain goroutine.
func (p *Processor) analyze(text string, flushedAt time.Time) (result *types.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	if m := p.config.Metrics; m != nil {
		m.AnalysisCalls.Inc()
	}
	result = p.analyzer.Analyze(text, types.AnalysisMeta{
		SourceType: types.SourceLive,
		Timestamp:  flushedAt,
	})
	return result, nil
}

// emit sends one message to the sink. Emissions after Close are suppressed;
// a sink write failure terminates the session.
func (p *Processor) emit(msg any) {
	p.sendMu.Lock()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sendMu.Unlock()
		return
	}
	p.mu.Unlock()

	err := p.sink.Send(msg)
	p.sendMu.Unlock()

	if err != nil {
		p.log.WithError(err).Warn("sink write failed, closing session")
		p.Close()
		return
	}

	p.mu.Lock()
	if !p.closed {
		p.state = StateEmitted
	}
	p.mu.Unlock()
}

// Close terminates the session: it stops the audio producer, abandons any
// in-flight transcription call, and discards all buffered and queued audio.
// Safe to call more than once.
func (p *Processor) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.state = StateClosed
	p.queue = nil
	p.window.Clear()
	p.mu.Unlock()

	// Wait out any sink write already past its closed-check, so no message
	// can land after Close returns.
	p.sendMu.Lock()
	p.sendMu.Unlock()

	p.cancel()
	if p.source != nil {
		p.source.Stop()
	}
	p.log.Info("session closed")
}
