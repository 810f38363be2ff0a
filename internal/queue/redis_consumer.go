/**
 * Direct Redis Queue Consumer for LayoutOCR Worker
 *
 * Uses plain Redis LIST operations so producers in other languages only
 * need LPUSH and HSET to submit work.
 */

package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisQueue is the list capture job ids are pushed to
const DefaultRedisQueue = "layoutocr:jobs"

var errNoJobs = stderrors.New("no jobs available")

// queueKeys names the Redis keys that hang off one queue.
type queueKeys struct {
	list       string
	data       string
	processing string
	completed  string
	failed     string
	results    string
	errors     string
	events     string
}

func keysFor(queue string) queueKeys {
	return queueKeys{
		list:       queue,
		data:       queue + ":data",
		processing: queue + ":processing",
		completed:  queue + ":completed",
		failed:     queue + ":failed",
		results:    queue + ":results",
		errors:     queue + ":errors",
		events:     queue + ":events",
	}
}

// RedisConsumer handles job consumption from Redis queue
type RedisConsumer struct {
	client    *redis.Client
	processor processor.CaptureProcessorInterface
	config    *RedisConsumerConfig
	keys      queueKeys
	logger    *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.CaptureProcessorInterface
	ProcessingTimeout time.Duration
	Logger            *logging.Logger
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = DefaultRedisQueue
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("RedisQueue")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:    client,
		processor: cfg.Processor,
		config:    cfg,
		keys:      keysFor(cfg.QueueName),
		logger:    logger,
		ctx:       consumerCtx,
		cancel:    cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	c.logger.Info("starting Redis queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	return nil
}

// Stop gracefully stops the consumer. In-flight jobs finish first.
func (c *RedisConsumer) Stop() error {
	c.logger.Info("stopping Redis queue consumer")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	c.logger.Debug("worker started", "worker", id)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("worker stopping", "worker", id)
			return
		default:
		}

		if err := c.processNextJob(c.ctx); err != nil {
			if stderrors.Is(err, errNoJobs) || c.ctx.Err() != nil {
				continue
			}
			c.logger.Error("worker error", "worker", id, "error", err)
			time.Sleep(time.Second)
		}
	}
}

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob(ctx context.Context) error {
	result, err := c.client.BRPop(ctx, 5*time.Second, c.keys.list).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	return c.handleJob(result[1])
}

// handleJob runs one popped job. Its status writes use detached contexts:
// an id that has left the list is recorded even while the consumer stops.
func (c *RedisConsumer) handleJob(id string) error {
	ctx, cancel := detached()
	raw, err := c.client.HGet(ctx, c.keys.data, id).Result()
	cancel()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		c.markFailed(id, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	req, err := job.Payload.ToRequest()
	if err != nil {
		c.markFailed(id, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("invalid capture job %s: %w", id, err)
	}

	logger := c.logger.With("job", req.JobID)

	c.markProcessing(req.JobID)
	c.updateStatus(logger, req.JobID, "processing", 0, nil)

	captured, err := runCapture(context.Background(), c.processor, req, c.config.ProcessingTimeout, logger)
	if err != nil {
		job.Attempts++
		if job.Attempts < job.MaxRetries {
			if requeueErr := c.requeue(&job); requeueErr != nil {
				logger.Error("failed to requeue job", "error", requeueErr)
			} else {
				logger.Info("job requeued for retry", "attempt", job.Attempts, "maxRetries", job.MaxRetries)
				return nil
			}
		}

		failure := processor.FailureMetadata(err)
		failure["attempts"] = job.Attempts
		c.markFailed(req.JobID, failure)
		c.updateStatus(logger, req.JobID, "failed", 100, failure)
		return nil
	}

	c.markCompleted(req.JobID, captured)
	c.updateStatus(logger, req.JobID, "completed", 100, processor.CompletionMetadata(captured))
	return nil
}

// bookkeepingTimeout bounds each status write made outside the consumer context
const bookkeepingTimeout = 10 * time.Second

func detached() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), bookkeepingTimeout)
}

func (c *RedisConsumer) updateStatus(logger *logging.Logger, jobID, status string, progress int, metadata map[string]interface{}) {
	ctx, cancel := detached()
	defer cancel()
	if err := c.processor.UpdateJobStatus(ctx, jobID, status, progress, metadata); err != nil {
		logger.Warn("failed to update job status", "status", status, "error", err)
	}
}

func (c *RedisConsumer) requeue(job *RedisJobData) error {
	updated, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ctx, cancel := detached()
	defer cancel()
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.keys.data, job.ID, updated)
	pipe.SRem(ctx, c.keys.processing, job.Payload.JobID)
	pipe.LPush(ctx, c.keys.list, job.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisConsumer) markProcessing(jobID string) {
	ctx, cancel := detached()
	defer cancel()
	c.client.SAdd(ctx, c.keys.processing, jobID)
	c.publish(ctx, jobID, "processing")
}

func (c *RedisConsumer) markCompleted(jobID string, result *processor.CaptureResult) {
	ctx, cancel := detached()
	defer cancel()
	pipe := c.client.TxPipeline()
	pipe.SRem(ctx, c.keys.processing, jobID)
	pipe.SAdd(ctx, c.keys.completed, jobID)
	if data, err := json.Marshal(result); err == nil {
		pipe.HSet(ctx, c.keys.results, jobID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to record completed job", "job", jobID, "error", err)
	}
	c.publish(ctx, jobID, "completed")
}

func (c *RedisConsumer) markFailed(jobID string, failure map[string]interface{}) {
	ctx, cancel := detached()
	defer cancel()
	pipe := c.client.TxPipeline()
	pipe.SRem(ctx, c.keys.processing, jobID)
	pipe.SAdd(ctx, c.keys.failed, jobID)
	if data, err := json.Marshal(failure); err == nil {
		pipe.HSet(ctx, c.keys.errors, jobID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to record failed job", "job", jobID, "error", err)
	}
	c.publish(ctx, jobID, "failed")
}

// publish emits a job:<status> event for live subscribers
func (c *RedisConsumer) publish(ctx context.Context, jobID, status string) {
	event := map[string]interface{}{
		"event":     "job:" + status,
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	data, _ := json.Marshal(event)
	c.client.Publish(ctx, c.keys.events, data)
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats(ctx context.Context) (map[string]int64, error) {
	pipe := c.client.Pipeline()
	waiting := pipe.LLen(ctx, c.keys.list)
	processing := pipe.SCard(ctx, c.keys.processing)
	completed := pipe.SCard(ctx, c.keys.completed)
	failed := pipe.SCard(ctx, c.keys.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return map[string]int64{
		"waiting":    waiting.Val(),
		"processing": processing.Val(),
		"completed":  completed.Val(),
		"failed":     failed.Val(),
	}, nil
}
