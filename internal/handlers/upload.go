package handlers

import (
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/audio"
	"github.com/saitarunaditya/truthguard/internal/queue"
	"github.com/saitarunaditya/truthguard/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	workerPool *queue.WorkerPool
	maxSizeMB  int
	tempDir    string
	log        *logrus.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(workerPool *queue.WorkerPool, maxSizeMB int, tempDir string, log *logrus.Logger) *UploadHandler {
	return &UploadHandler{
		workerPool: workerPool,
		maxSizeMB:  maxSizeMB,
		tempDir:    tempDir,
		log:        log,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = "untitled"
	}
	language := c.FormValue("language")
	if language == "" {
		language = "en"
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !audio.ValidFormat(file.Filename) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported audio format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	jobID := uuid.New().String()
	extension := filepath.Ext(file.Filename)
	tempPath := filepath.Join(h.tempDir, fmt.Sprintf("%s%s", jobID, extension))

	if err := c.SaveFile(file, tempPath); err != nil {
		h.log.WithError(err).Error("Failed to save uploaded file")
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	job := queue.NewJob(jobID, requestName, types.SourceUpload, tempPath)
	job.Language = language
	h.workerPool.EnqueueJob(job)

	h.log.WithFields(logrus.Fields{
		"job_id": jobID,
		"name":   requestName,
		"size":   file.Size,
	}).Info("Upload accepted")

	// Return job ID immediately; processing happens in the worker pool.
	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"message": "File queued for transcription",
	})
}
