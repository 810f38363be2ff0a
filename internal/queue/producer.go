package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Producer submits capture jobs to a queue backend
type Producer interface {
	EnqueueCapture(ctx context.Context, payload *JobPayload) (string, error)
	Close() error
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	RedisURL   string
	QueueName  string
	MaxRetries int
	Timeout    time.Duration
}

func (cfg *ProducerConfig) maxRetries() int {
	if cfg.MaxRetries > 0 {
		return cfg.MaxRetries
	}
	return 3
}

// prepare fills in a job id and checks the payload has an image source.
func prepare(payload *JobPayload) error {
	if payload == nil {
		return fmt.Errorf("payload is required")
	}
	if payload.ImageURL == "" && len(payload.ImageBuffer) == 0 {
		return fmt.Errorf("imageUrl or imageBuffer is required")
	}
	if payload.JobID == "" {
		payload.JobID = uuid.New().String()
	}
	return nil
}

// AsynqProducer enqueues capture tasks for the asynq consumer
type AsynqProducer struct {
	client *asynq.Client
	config *ProducerConfig
}

// NewAsynqProducer creates a producer backed by an asynq client
func NewAsynqProducer(cfg *ProducerConfig) (*AsynqProducer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &AsynqProducer{client: asynq.NewClient(redisOpt), config: cfg}, nil
}

// EnqueueCapture submits a capture task and returns its job id
func (p *AsynqProducer) EnqueueCapture(ctx context.Context, payload *JobPayload) (string, error) {
	if err := prepare(payload); err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(payload.JobID),
		asynq.Queue(p.config.QueueName),
		asynq.MaxRetry(p.config.maxRetries()),
	}
	if p.config.Timeout > 0 {
		opts = append(opts, asynq.Timeout(p.config.Timeout))
	}

	if _, err := p.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeCapture, data), opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue capture job: %w", err)
	}
	return payload.JobID, nil
}

// Close closes the asynq client
func (p *AsynqProducer) Close() error {
	return p.client.Close()
}

// RedisProducer pushes capture jobs onto the list read by RedisConsumer
type RedisProducer struct {
	client *redis.Client
	config *ProducerConfig
	keys   queueKeys
}

// NewRedisProducer creates a producer for the plain Redis queue
func NewRedisProducer(cfg *ProducerConfig) (*RedisProducer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultRedisQueue
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisProducer{
		client: redis.NewClient(opt),
		config: cfg,
		keys:   keysFor(cfg.QueueName),
	}, nil
}

// EnqueueCapture stores the job record and pushes its id onto the list
func (p *RedisProducer) EnqueueCapture(ctx context.Context, payload *JobPayload) (string, error) {
	if err := prepare(payload); err != nil {
		return "", err
	}

	job := newRedisJob(payload, p.config.maxRetries())
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.keys.data, job.ID, data)
	pipe.LPush(ctx, p.keys.list, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue capture job: %w", err)
	}
	return payload.JobID, nil
}

// Close closes the Redis client
func (p *RedisProducer) Close() error {
	return p.client.Close()
}

func newRedisJob(payload *JobPayload, maxRetries int) *RedisJobData {
	return &RedisJobData{
		ID:         payload.JobID,
		Type:       TaskTypeCapture,
		Payload:    *payload,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: maxRetries,
	}
}
