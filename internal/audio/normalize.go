package audio

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Normalize converts an audio file to 16kHz mono WAV, the input format the
// transcription API expects. Returns the path of the converted file inside
// tempDir.
func Normalize(inputPath, tempDir string) (string, error) {
	outputPath := filepath.Join(tempDir, fmt.Sprintf("normalized_%s.wav", uuid.New().String()))

	cmd := exec.Command("ffmpeg",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	return outputPath, nil
}

// ValidFormat checks whether the file extension is a supported audio format.
func ValidFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supported := []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma"}

	for _, format := range supported {
		if ext == format {
			return true
		}
	}
	return false
}
