package queue

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/analysis"
	"github.com/saitarunaditya/truthguard/internal/audio"
	"github.com/saitarunaditya/truthguard/internal/metrics"
	"github.com/saitarunaditya/truthguard/internal/storage"
	"github.com/saitarunaditya/truthguard/internal/types"
)

// Transcriber is the external transcription collaborator used by workers.
type Transcriber interface {
	Upload(ctx context.Context, audio []byte) (string, error)
	Transcribe(ctx context.Context, handle, language string) (string, error)
}

// Archiver archives a finished report remotely (Google Drive).
type Archiver interface {
	Upload(requestName string, report *types.TranscriptionReport) (string, error)
}

// WorkerPool manages a pool of workers processing one-shot transcription and
// analysis jobs.
type WorkerPool struct {
	jobQueue     chan *Job
	workerCount  int
	transcriber  Transcriber
	analyzer     *analysis.Analyzer
	localStorage *storage.LocalStorage
	archiver     Archiver
	db           *storage.ReportDB
	tempDir      string
	log          *logrus.Logger
	metrics      *metrics.Metrics
}

// NewWorkerPool creates a new worker pool. archiver, db, and metrics may be
// nil.
func NewWorkerPool(
	workerCount int,
	transcriber Transcriber,
	analyzer *analysis.Analyzer,
	localStorage *storage.LocalStorage,
	archiver Archiver,
	db *storage.ReportDB,
	tempDir string,
	log *logrus.Logger,
	m *metrics.Metrics,
) *WorkerPool {
	return &WorkerPool{
		jobQueue:     make(chan *Job, 100),
		workerCount:  workerCount,
		transcriber:  transcriber,
		analyzer:     analyzer,
		localStorage: localStorage,
		archiver:     archiver,
		db:           db,
		tempDir:      tempDir,
		log:          log,
		metrics:      m,
	}
}

// Start initializes all workers.
func (wp *WorkerPool) Start() {
	wp.log.WithField("workers", wp.workerCount).Info("starting worker pool")
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// EnqueueJob adds a job to the queue.
func (wp *WorkerPool) EnqueueJob(job *Job) {
	job.Status = types.StatusQueued
	job.CreatedAt = time.Now()
	wp.jobQueue <- job
	if wp.metrics != nil {
		wp.metrics.JobsQueued.Inc()
	}
	wp.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": job.SourceType,
		"name":   job.RequestName,
	}).Info("job enqueued")
}

// worker processes jobs from the queue.
func (wp *WorkerPool) worker(id int) {
	log := wp.log.WithField("worker", id)
	log.Debug("worker started")

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("job_id", job.ID).Errorf("panic processing job: %v\n%s", r, string(debug.Stack()))
					wp.fail(job, fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.processJob(log, job)
		}()
	}
}

// processJob handles the complete transcription and analysis pipeline.
func (wp *WorkerPool) processJob(log *logrus.Entry, job *Job) {
	log = log.WithField("job_id", job.ID)
	log.Info("processing job")
	job.Status = types.StatusProcessing

	// Step 1: Normalize audio
	normalizedPath, err := audio.Normalize(job.FilePath, wp.tempDir)
	if err != nil {
		log.WithError(err).Warn("audio normalization failed")
		wp.fail(job, fmt.Errorf("audio normalization failed: %v", err))
		return
	}
	defer wp.cleanupTempFile(normalizedPath)

	// Step 2: Transcribe through the remote API
	audioBytes, err := os.ReadFile(normalizedPath)
	if err != nil {
		wp.fail(job, fmt.Errorf("reading normalized audio: %v", err))
		return
	}

	ctx := context.Background()
	handle, err := wp.transcriber.Upload(ctx, audioBytes)
	if err != nil {
		log.WithError(err).Warn("audio upload failed")
		wp.fail(job, fmt.Errorf("upload failed: %v", err))
		return
	}

	text, err := wp.transcriber.Transcribe(ctx, handle, job.Language)
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		wp.fail(job, fmt.Errorf("transcription failed: %v", err))
		return
	}

	// Step 3: Credibility analysis
	result := wp.analyzer.Analyze(text, types.AnalysisMeta{
		SourceType: job.SourceType,
		Timestamp:  time.Now(),
	})

	report := &types.TranscriptionReport{
		JobID:       job.ID,
		Text:        text,
		Language:    job.Language,
		WordCount:   len(strings.Fields(text)),
		Analysis:    result,
		ProcessedAt: time.Now(),
	}

	// Step 4: Save locally
	localPath, err := wp.localStorage.SaveReport(job.RequestName, report)
	if err != nil {
		log.WithError(err).Warn("local save failed")
		wp.fail(job, fmt.Errorf("local save failed: %v", err))
		return
	}
	report.LocalPath = localPath

	// Step 5: Archive to Google Drive (with retry)
	if wp.archiver != nil {
		var driveURL string
		for attempt := 1; attempt <= 3; attempt++ {
			driveURL, err = wp.archiver.Upload(job.RequestName, report)
			if err == nil {
				report.GDriveURL = driveURL
				break
			}
			log.WithError(err).Warnf("drive upload attempt %d/3 failed", attempt)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second) // Exponential backoff
			}
		}
		if err != nil {
			log.Warn("drive upload failed after 3 attempts, continuing with local save only")
		}
	}

	// Step 6: Save metadata to database
	if wp.db != nil {
		err = wp.db.SaveReport(&storage.ReportRecord{
			JobID:       job.ID,
			RequestName: job.RequestName,
			SourceType:  job.SourceType,
			Verdict:     result.Verdict,
			Confidence:  result.Confidence,
			WordCount:   report.WordCount,
			GDriveURL:   report.GDriveURL,
			LocalPath:   localPath,
		})
		if err != nil {
			log.WithError(err).Warn("database save failed")
		}
	}

	// Step 7: Cleanup
	wp.cleanupTempFile(job.FilePath)

	job.Report = report
	job.Status = types.StatusCompleted
	if wp.metrics != nil {
		wp.metrics.JobsCompleted.Inc()
	}
	log.WithFields(logrus.Fields{
		"verdict":    result.Verdict,
		"confidence": result.Confidence,
		"local":      localPath,
	}).Info("job completed")
}

func (wp *WorkerPool) fail(job *Job, err error) {
	job.Status = types.StatusFailed
	job.Error = err
	wp.cleanupTempFile(job.FilePath)
	if wp.metrics != nil {
		wp.metrics.JobsFailed.Inc()
	}
}

// cleanupTempFile removes a temporary file.
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		wp.log.WithError(err).WithField("path", filePath).Warn("failed to cleanup temp file")
	}
}
