package queue

import (
	"time"

	"github.com/saitarunaditya/truthguard/internal/types"
)

// Job represents a one-shot transcription and analysis job.
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	Language    string
	FilePath    string
	Status      string
	Error       error
	Report      *types.TranscriptionReport
	CreatedAt   time.Time
}

// NewJob creates a new job with default values.
func NewJob(id, requestName, sourceType, filePath string) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
	}
}
