/**
 * LayoutOCR Worker - Main Entry Point
 *
 * Go worker that turns screen captures into text with their visual layout
 * preserved: tables come back tab separated, everything else keeps its
 * indentation.
 *
 * Architecture:
 * - Redis list or Asynq consumer for the capture job queue
 * - Tesseract recognition with automatic scale calibration
 * - Row/column layout analysis and tab or space rendering
 * - PostgreSQL persistence for job status and capture results
 * - Optional Qdrant index of layout signatures
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/config"
	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/tesseract"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
	"github.com/adverant/nexus/layoutocr-worker/internal/queue"
	"github.com/adverant/nexus/layoutocr-worker/internal/storage"
	"github.com/joho/godotenv"
)

// consumer is the part of the queue consumers main needs
type consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// redisConsumer adapts RedisConsumer to the context-taking lifecycle
type redisConsumer struct {
	*queue.RedisConsumer
}

func (c redisConsumer) Start(ctx context.Context) error { return c.RedisConsumer.Start() }
func (c redisConsumer) Stop(ctx context.Context) error  { return c.RedisConsumer.Stop() }

func main() {
	logger := logging.NewLogger("LayoutOCR")

	if err := godotenv.Load(".env"); err != nil {
		logger.Info(".env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))

	logger.Info("worker starting",
		"backend", cfg.QueueBackend,
		"queue", cfg.QueueName,
		"workers", cfg.WorkerConcurrency,
		"language", cfg.OCRLanguage,
		"signatures", cfg.QdrantURL != "")

	storageManager, err := storage.NewStorageManager(cfg.DatabaseURL, cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		logger.Error("failed to initialize storage manager", "error", err)
		os.Exit(1)
	}

	statsCtx, statsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if stats, err := storageManager.GetStats(statsCtx); err != nil {
		logger.Warn("storage stats unavailable", "error", err)
	} else {
		logger.Info("storage ready", "stats", stats)
	}
	statsCancel()

	engine := tesseract.New(&tesseract.Config{MaxImageDimension: cfg.OCRMaxImageDimension})

	pipeline := processor.NewPipeline(engine, pipelineConfig(cfg), logger.With("component", "pipeline"))

	proc, err := processor.NewCaptureProcessor(pipeline, storageManager, logger.With("component", "processor"))
	if err != nil {
		logger.Error("failed to initialize capture processor", "error", err)
		os.Exit(1)
	}

	queueConsumer, err := newConsumer(cfg, proc, logger.With("component", "queue"))
	if err != nil {
		logger.Error("failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queueConsumer.Start(ctx); err != nil {
		logger.Error("failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("worker ready, waiting for jobs")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ProcessingTimeout+5*time.Second)
	defer stopCancel()

	if err := queueConsumer.Stop(stopCtx); err != nil {
		logger.Error("error stopping queue consumer", "error", err)
	}

	if err := storageManager.Close(); err != nil {
		logger.Error("error closing storage manager", "error", err)
	}

	logger.Info("shutdown complete")
}

// pipelineConfig maps worker configuration onto the capture pipeline
func pipelineConfig(cfg *config.Config) processor.PipelineConfig {
	return processor.PipelineConfig{
		Language:           cfg.OCRLanguage,
		Calibrate:          cfg.Calibrate,
		TrailingNewline:    cfg.TrailingNewline,
		PadSkippedColumns:  cfg.PadSkippedColumns,
		RecognitionTimeout: cfg.RecognitionTimeout,
		MaxImageSize:       cfg.MaxImageSize,
		Analyzer:           layout.AnalyzerConfig{MinBandGapChars: cfg.MinBandGapChars},
	}
}

func newConsumer(cfg *config.Config, proc processor.CaptureProcessorInterface, logger *logging.Logger) (consumer, error) {
	if cfg.QueueBackend == config.QueueBackendAsynq {
		return queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: cfg.ProcessingTimeout,
			Logger:            logger,
		})
	}

	c, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: cfg.ProcessingTimeout,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	return redisConsumer{c}, nil
}
