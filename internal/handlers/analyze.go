package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/analysis"
	"github.com/saitarunaditya/truthguard/internal/metrics"
	"github.com/saitarunaditya/truthguard/internal/types"
)

// AnalyzeHandler scores raw text without any transcription step.
type AnalyzeHandler struct {
	analyzer *analysis.Analyzer
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzeHandler creates a new text analysis handler.
func NewAnalyzeHandler(analyzer *analysis.Analyzer, log *logrus.Logger, m *metrics.Metrics) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, log: log, metrics: m}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// HandleAnalyze processes POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No text provided",
		})
	}

	if h.metrics != nil {
		h.metrics.AnalysisCalls.Inc()
	}

	result := h.analyzer.Analyze(req.Text, types.AnalysisMeta{
		SourceType: types.SourceText,
		Timestamp:  time.Now(),
	})

	h.log.WithFields(logrus.Fields{
		"verdict":    result.Verdict,
		"confidence": result.Confidence,
		"length":     len(req.Text),
	}).Info("Text analysis completed")

	return c.JSON(result)
}
