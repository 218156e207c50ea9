package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/saitarunaditya/truthguard/internal/types"
)

// LocalStorage handles saving credibility reports to the local filesystem.
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler.
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// SaveReport writes the transcript text and the full report JSON to a dated
// directory and returns the transcript path.
func (ls *LocalStorage) SaveReport(requestName string, report *types.TranscriptionReport) (string, error) {
	// Dated directory structure: outputs/2025/01/23/
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	// Filename: 20250123_143022_evening_broadcast.txt
	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(requestName))

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	reportPath := filepath.Join(dateDir, baseFilename+"_report.json")

	if err := os.WriteFile(txtPath, []byte(report.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %v", err)
	}

	if err := os.WriteFile(reportPath, reportJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save report: %v", err)
	}

	return txtPath, nil
}

// sanitizeFilename removes invalid characters from a filename.
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
