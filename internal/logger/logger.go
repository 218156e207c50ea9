package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// New creates the process logger. Output goes to stdout and, when buffer is
// non-nil, into the in-memory ring served by the /logs endpoint. Level comes
// from LOG_LEVEL.
func New(buffer *Buffer) *logrus.Logger {
	l := logrus.New()

	var out io.Writer = os.Stdout
	if buffer != nil {
		out = io.MultiWriter(os.Stdout, buffer)
	}
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	switch level {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Buffer keeps the most recent log lines in memory.
type Buffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

// NewBuffer creates a ring buffer holding up to max lines.
func NewBuffer(max int) *Buffer {
	return &Buffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, string(p))
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	return len(p), nil
}

// Lines returns a copy of the buffered log lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, len(b.lines))
	copy(lines, b.lines)
	return lines
}
