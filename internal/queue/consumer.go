/**
 * Queue Consumer for LayoutOCR Worker
 *
 * Consumes capture jobs from Redis through Asynq and hands them to the
 * capture processor.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
	"github.com/hibiken/asynq"
)

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.CaptureProcessorInterface
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.CaptureProcessorInterface
	ProcessingTimeout time.Duration
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("Queue")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: retryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing error", "type", task.Type(), "error", err)
			}),
			Logger: &asynqLogger{logger: logger},
		},
	)

	consumer := &Consumer{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: cfg.Processor,
		config:    cfg,
		logger:    logger,
	}

	consumer.mux.HandleFunc(TaskTypeCapture, consumer.handleCapture)

	return consumer, nil
}

// retryDelay backs off exponentially: 5s, 10s, 20s, capped at a minute.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	const maxDelay = 60 * time.Second
	if n < 0 || n > 4 {
		return maxDelay
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("stopping queue consumer")
	c.server.Shutdown()
	c.logger.Info("queue consumer stopped")
	return nil
}

func (c *Consumer) handleCapture(ctx context.Context, task *asynq.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}

	req, err := payload.ToRequest()
	if err != nil {
		return fmt.Errorf("invalid capture job: %v: %w", err, asynq.SkipRetry)
	}

	logger := c.logger.With("job", req.JobID)
	logger.Info("processing capture", "mode", req.Mode, "language", req.Language)

	if err := c.processor.UpdateJobStatus(ctx, req.JobID, "processing", 0, nil); err != nil {
		logger.Warn("failed to update status to processing", "error", err)
	}

	result, err := runCapture(ctx, c.processor, req, c.config.ProcessingTimeout, logger)
	if err != nil {
		if updateErr := c.processor.UpdateJobStatus(ctx, req.JobID, "failed", 100, processor.FailureMetadata(err)); updateErr != nil {
			logger.Warn("failed to update status to failed", "error", updateErr)
		}
		return fmt.Errorf("capture processing failed: %w", err)
	}

	if err := c.processor.UpdateJobStatus(ctx, req.JobID, "completed", 100, processor.CompletionMetadata(result)); err != nil {
		logger.Warn("failed to update status to completed", "error", err)
	}

	return nil
}

// asynqLogger routes asynq's internal logging through the worker logger.
type asynqLogger struct {
	logger *logging.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
