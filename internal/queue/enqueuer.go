package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer publishes background tasks. A zero Enqueuer silently drops tasks,
// which keeps the API usable in tests and tooling without a broker.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueActivationEmail queues the activation email for a new account. The
// token makes the task naturally unique per registration.
func (e Enqueuer) EnqueueActivationEmail(ctx context.Context, p ActivationEmailPayload) error {
	task, err := NewActivationEmailTask(p)
	if err != nil {
		return err
	}
	return e.enqueue(ctx, task,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(8),
		asynq.Unique(time.Hour),
	)
}

// EnqueueOrderStatusEmail queues an order lifecycle notification.
func (e Enqueuer) EnqueueOrderStatusEmail(ctx context.Context, p OrderStatusEmailPayload) error {
	task, err := NewOrderStatusEmailTask(p)
	if err != nil {
		return err
	}
	return e.enqueue(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
		asynq.Unique(6*time.Hour),
	)
}

func (e Enqueuer) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if e.Client == nil {
		return nil
	}
	_, err := e.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		TasksEnqueuedTotal.WithLabelValues(task.Type(), "error").Inc()
		return err
	}
	TasksEnqueuedTotal.WithLabelValues(task.Type(), "ok").Inc()
	return nil
}
