package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saitarunaditya/truthguard/internal/analysis"
	"github.com/saitarunaditya/truthguard/internal/cache"
	"github.com/saitarunaditya/truthguard/internal/config"
	"github.com/saitarunaditya/truthguard/internal/handlers"
	"github.com/saitarunaditya/truthguard/internal/logger"
	"github.com/saitarunaditya/truthguard/internal/metrics"
	"github.com/saitarunaditya/truthguard/internal/patterns"
	"github.com/saitarunaditya/truthguard/internal/queue"
	"github.com/saitarunaditya/truthguard/internal/storage"
	"github.com/saitarunaditya/truthguard/internal/transcription"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logBuffer := logger.NewBuffer(1000)
	log := logger.New(logBuffer)

	if err := os.MkdirAll(cfg.Storage.TempDir, 0755); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.Info("Initializing components...")

	m := metrics.New()

	// Analysis engine with its expiring result cache.
	analysisCache := cache.New(analysis.CacheNamespace)
	sweeper := cache.NewSweeper(analysisCache,
		time.Duration(cfg.Analysis.SweepIntervalMinutes)*time.Minute, log)
	sweeper.Start()
	defer sweeper.Stop()

	table := patterns.NewTable()
	analyzer := analysis.New(table, analysisCache,
		time.Duration(cfg.Analysis.CacheTTLMinutes)*time.Minute, log)

	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:     cfg.Transcription.Endpoint,
		APIKey:       cfg.Transcription.APIKey,
		Timeout:      time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Transcription.PollIntervalSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to initialize transcription client: %v", err)
	}

	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive client (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.WithError(err).Warn("Google Drive not available, reports will only be saved locally")
			driveClient = nil
		} else {
			log.Info("Google Drive integration enabled")
		}
	} else {
		log.Info("Google Drive credentials not found - saving locally only")
	}

	db, err := storage.NewReportDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var archiver queue.Archiver
	if driveClient != nil {
		archiver = driveClient
	}
	workerPool := queue.NewWorkerPool(
		cfg.Workers.Count,
		transcriber,
		analyzer,
		localStorage,
		archiver,
		db,
		cfg.Storage.TempDir,
		log,
		m,
	)
	workerPool.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	uploadHandler := handlers.NewUploadHandler(workerPool, cfg.Limits.MaxFileSizeMB, cfg.Storage.TempDir, log)
	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, log, m)
	liveHandler := handlers.NewLiveHandler(transcriber, analyzer, cfg, log, m)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/upload", uploadHandler.Handle)
	app.Post("/analyze", analyzeHandler.HandleAnalyze)

	app.Get("/ws/live", websocket.New(liveHandler.Handle))

	app.Get("/reports", func(c *fiber.Ctx) error {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		reports, err := db.ListReports(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(reports)
	})

	app.Get("/reports/:id", func(c *fiber.Ctx) error {
		rec, err := db.GetReport(c.Params("id"))
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Report not found"})
		}
		return c.JSON(rec)
	})

	app.Get("/reports/:id/text", func(c *fiber.Ctx) error {
		rec, err := db.GetReport(c.Params("id"))
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Report not found"})
		}
		if rec.LocalPath == "" {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript file path not found"})
		}
		content, err := os.ReadFile(rec.LocalPath)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to read transcript file"})
		}
		return c.SendString(string(content))
	})

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.Lines(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Server starting on %s", addr)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
