package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/config"
	"github.com/saitarunaditya/truthguard/internal/metrics"
	"github.com/saitarunaditya/truthguard/internal/producer"
	"github.com/saitarunaditya/truthguard/internal/stream"
)

// LiveHandler handles live transcription WebSocket sessions.
type LiveHandler struct {
	transcriber stream.Transcriber
	analyzer    stream.Analyzer
	cfg         *config.Config
	log         *logrus.Logger
	metrics     *metrics.Metrics
}

// NewLiveHandler creates a new live session handler.
func NewLiveHandler(transcriber stream.Transcriber, analyzer stream.Analyzer, cfg *config.Config, log *logrus.Logger, m *metrics.Metrics) *LiveHandler {
	return &LiveHandler{
		transcriber: transcriber,
		analyzer:    analyzer,
		cfg:         cfg,
		log:         log,
		metrics:     m,
	}
}

// startLiveMessage is the single inbound control message.
type startLiveMessage struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Language string `json:"language"`
}

// wsSink serializes writes to the websocket connection.
type wsSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSink) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Handle runs one live session on a websocket connection: it waits for the
// start_live control message, spins up a producer and stream processor for
// the requested source, and pumps chunks until the source ends or the client
// disconnects.
func (h *LiveHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	sessionID := uuid.New().String()
	log := h.log.WithField("session", sessionID)
	sink := &wsSink{conn: c}

	var msg startLiveMessage
	if err := c.ReadJSON(&msg); err != nil {
		log.WithError(err).Debug("failed to read control message")
		return
	}
	if msg.Type != "start_live" || msg.URL == "" {
		sink.Send(stream.ErrorMessage{Type: "error", Error: "expected start_live message with url"})
		return
	}
	if msg.Language == "" {
		msg.Language = "en"
	}

	src := producer.NewFFmpeg(h.cfg.ChunkDuration(), h.log)
	proc := stream.NewProcessor(stream.Config{
		Language:       msg.Language,
		WindowDuration: h.cfg.WindowDuration(),
		FlushInterval:  h.cfg.FlushInterval(),
		MaxQueueLen:    h.cfg.Live.MaxQueueLen,
		Metrics:        h.metrics,
	}, h.transcriber, h.analyzer, sink, src, log)
	defer proc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := src.Start(ctx, msg.URL)
	if err != nil {
		log.WithError(err).Warn("failed to start audio producer")
		sink.Send(stream.ErrorMessage{Type: "error", Error: "failed to start audio source", Details: err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsStarted.Inc()
		h.metrics.ActiveSessions.Inc()
		defer h.metrics.ActiveSessions.Dec()
	}

	log.WithFields(logrus.Fields{
		"url":      msg.URL,
		"language": msg.Language,
	}).Info("live session started")
	sink.Send(stream.StatusMessage{Type: "status", Message: "live session started"})

	// Watch the socket so a client disconnect tears the session down.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				log.Info("audio source ended")
				sink.Send(stream.StatusMessage{Type: "status", Message: "audio source ended"})
				return
			}
			proc.ProcessChunk(chunk.Payload, chunk.Duration)
		case <-disconnected:
			log.Info("client disconnected")
			return
		}
	}
}
