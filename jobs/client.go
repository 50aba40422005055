package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

const lowStockMaxRetry = 3

// Client enqueues stockroom tasks.
type Client struct {
	client *asynq.Client
}

// NewClient opens an Asynq client on redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueLowStockScan queues an on-demand scan. Scans already pending within
// the uniqueness window are rejected by Asynq with ErrDuplicateTask.
func (c *Client) EnqueueLowStockScan(ctx context.Context, payload LowStockScanPayload) (*asynq.TaskInfo, error) {
	task, err := NewLowStockScanTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(lowStockMaxRetry),
		asynq.Unique(lowStockUniqueWindow),
	)
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
