package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceLive   = "live"
	SourceText   = "text"
)

// Credibility verdict tiers
const (
	VerdictHighlyCredible   = "Highly Credible"
	VerdictSomewhatCredible = "Somewhat Credible"
	VerdictLowCredibility   = "Low Credibility"
)

// Pattern categories
const (
	CategorySensationalism = "SENSATIONALISM"
	CategoryClickbait      = "CLICKBAIT"
	CategoryConspiracy     = "CONSPIRACY"
	CategoryCredible       = "CREDIBLE"
)

// AnalysisMeta carries caller context into an analysis call. It is echoed
// back in the result and cached with it, so a cache hit returns the metadata
// of the call that populated the entry.
type AnalysisMeta struct {
	SourceType string    `json:"source_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// DetectedPattern records one matched credibility pattern and its signed
// impact on the final score.
type DetectedPattern struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Matches  int    `json:"matches"`
	Impact   int    `json:"impact"`
}

// AnalysisResult is the output of a credibility analysis. Immutable once
// returned; persisted only as a cache value.
type AnalysisResult struct {
	Verdict          string            `json:"verdict"`
	Confidence       int               `json:"confidence"`
	CategoryCounts   map[string]int    `json:"category_counts"`
	DetectedPatterns []DetectedPattern `json:"detected_patterns"`
	Meta             AnalysisMeta      `json:"meta"`
}

// TranscriptionReport is the outcome of a one-shot transcription job.
type TranscriptionReport struct {
	JobID       string          `json:"job_id"`
	Text        string          `json:"text"`
	Language    string          `json:"language"`
	Duration    float64         `json:"duration_seconds"`
	WordCount   int             `json:"word_count"`
	Analysis    *AnalysisResult `json:"analysis"`
	ProcessedAt time.Time       `json:"processed_at"`
	LocalPath   string          `json:"local_path,omitempty"`
	GDriveURL   string          `json:"gdrive_url,omitempty"`
}
