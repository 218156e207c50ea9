package producer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sampleRate     = 16000
	bytesPerSample = 2
	bytesPerSecond = sampleRate * bytesPerSample
)

// FFmpeg pulls audio from a stream URL by running ffmpeg as a subprocess and
// slicing its PCM stdout into fixed-size chunks. Requires ffmpeg on PATH.
type FFmpeg struct {
	chunkBytes int
	log        *logrus.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stop    chan struct{}
	stopped bool
}

// NewFFmpeg creates a producer emitting chunks of roughly chunkDuration each.
func NewFFmpeg(chunkDuration time.Duration, log *logrus.Logger) *FFmpeg {
	chunkBytes := int(chunkDuration.Seconds() * bytesPerSecond)
	if chunkBytes <= 0 {
		chunkBytes = bytesPerSecond
	}
	// PCM-16 frames are 2 bytes; keep chunk boundaries sample-aligned.
	if chunkBytes%2 != 0 {
		chunkBytes++
	}
	return &FFmpeg{chunkBytes: chunkBytes, log: log}
}

// Start launches ffmpeg against the source URL and begins delivering PCM
// chunks. The returned channel is closed when the subprocess exits or Stop
// is called.
func (f *FFmpeg) Start(ctx context.Context, sourceID string) (<-chan Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cmd != nil {
		return nil, fmt.Errorf("producer already started")
	}
	f.stopped = false
	f.stop = make(chan struct{})

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", sourceID,
		"-f", "s16le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}
	f.cmd = cmd

	f.log.WithFields(logrus.Fields{
		"source":      sourceID,
		"chunk_bytes": f.chunkBytes,
	}).Info("audio producer started")

	out := make(chan Chunk)
	go f.pump(stdout, out, sourceID, f.stop)
	return out, nil
}

func (f *FFmpeg) pump(stdout io.Reader, out chan<- Chunk, sourceID string, stop <-chan struct{}) {
	defer close(out)
	defer func() {
		f.mu.Lock()
		cmd := f.cmd
		f.cmd = nil
		f.mu.Unlock()
		if cmd != nil {
			cmd.Wait()
		}
	}()

	for {
		buf := make([]byte, f.chunkBytes)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			chunk := Chunk{
				Payload:  buf[:n],
				Duration: time.Duration(float64(n) / bytesPerSecond * float64(time.Second)),
			}
			// The consumer may be gone; never block a stopped producer on
			// the send.
			select {
			case out <- chunk:
			case <-stop:
				return
			}
		}
		if err != nil {
			f.mu.Lock()
			stopped := f.stopped
			f.mu.Unlock()
			if !stopped && err != io.EOF && err != io.ErrUnexpectedEOF {
				f.log.WithError(err).WithField("source", sourceID).Warn("audio producer read failed")
			}
			return
		}
	}
}

// Stop kills the subprocess and releases the pump goroutine, including one
// blocked mid-send. The chunk channel closes once the pump exits. Safe to
// call more than once.
func (f *FFmpeg) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.stopped {
		f.stopped = true
		if f.stop != nil {
			close(f.stop)
		}
	}
	if f.cmd != nil && f.cmd.Process != nil {
		f.cmd.Process.Kill()
	}
}
