package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/events"
	"github.com/secureplay/training/pkg/logger"
)

// Client enqueues background tasks. It satisfies ingestion.Enqueuer
// and is the only writer to the task queues outside the scheduler.
type Client struct {
	asynq *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{asynq: asynq.NewClient(redisOpt)}
}

func (c *Client) Close() error {
	return c.asynq.Close()
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := c.asynq.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	logger.Debug("Task enqueued", map[string]interface{}{
		"task_type": task.Type(),
		"task_id":   info.ID,
		"queue":     info.Queue,
	})
	return nil
}

func (c *Client) EnqueueEvent(ctx context.Context, event events.Event) error {
	task, err := NewIngestEventTask(event)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueEventBatch(ctx context.Context, batch []events.Event) error {
	task, err := NewIngestBatchTask(batch)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueOrgScore(ctx context.Context, orgID string, start, end time.Time) error {
	task, err := NewOrgScoreTask(orgID, start, end)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueGroupScore(ctx context.Context, groupID string, start, end time.Time) error {
	task, err := NewGroupScoreTask(groupID, start, end)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueUserRisk(ctx context.Context, userID string) error {
	task, err := NewUserRiskTask(userID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueAllUserRisks(ctx context.Context, orgID string) error {
	task, err := NewAllUserRisksTask(orgID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueCheckAlerts(ctx context.Context, orgID string) error {
	task, err := NewCheckAlertsTask(orgID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) EnqueueGenerateReport(ctx context.Context, p GenerateReportPayload) error {
	task, err := NewGenerateReportTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}
