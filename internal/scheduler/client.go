package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"dim_dashboard_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// sweepUniqueTTL collapses repeated sweep requests into one queued task.
	sweepUniqueTTL  = 30 * time.Minute
	clinicUniqueTTL = 5 * time.Minute

	sweepTaskTimeout  = 2 * time.Hour
	clinicTaskTimeout = 15 * time.Minute
)

// Client enqueues sync work for the worker. It implements crmsync/handler.Enqueuer.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSweep queues a sweep. A sweep that is already queued counts as success.
func (c *Client) EnqueueSweep(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewCRMSyncSweepTask(),
		asynq.Queue(c.queue),
		asynq.Unique(sweepUniqueTTL),
		asynq.MaxRetry(0),
		asynq.Timeout(sweepTaskTimeout),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueClinicSync queues a single clinic sync.
func (c *Client) EnqueueClinicSync(ctx context.Context, clinicID uuid.UUID) error {
	task, err := NewClinicSyncTask(ClinicSyncPayload{ClinicID: clinicID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(clinicUniqueTTL),
		asynq.MaxRetry(1),
		asynq.Timeout(clinicTaskTimeout),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// RedisOptions parses the configured Redis URL for go-redis clients such as
// the sweep lock.
func RedisOptions(cfg config.SchedulerConfig) (*redis.Options, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfig(opt.TLSConfig, cfg.GetRedisTLSInsecure())
	return opt, nil
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig(opt.TLSConfig, tlsInsecure),
	}, nil
}

func tlsConfig(parsed *tls.Config, tlsInsecure bool) *tls.Config {
	if parsed != nil {
		clone := parsed.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if tlsInsecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}
