package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskValuationSnapshot records the total stock valuation.
	TaskValuationSnapshot = "inventory:valuation_snapshot"
	// TaskOutstandingAudit re-derives client balances and reports drift.
	TaskOutstandingAudit = "billing:outstanding_audit"
)

// ValuationSnapshotPayload carries scheduling metadata.
type ValuationSnapshotPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewValuationSnapshotTask constructs the snapshot task.
func NewValuationSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ValuationSnapshotPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskValuationSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// OutstandingAuditPayload carries scheduling metadata.
type OutstandingAuditPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOutstandingAuditTask constructs the audit task.
func NewOutstandingAuditTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OutstandingAuditPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutstandingAudit, body, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueValuationSnapshot enqueues an on-demand snapshot.
func (c *Client) EnqueueValuationSnapshot(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewValuationSnapshotTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueOutstandingAudit enqueues an on-demand audit.
func (c *Client) EnqueueOutstandingAudit(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewOutstandingAuditTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
