// Package queue carries the retryable passenger-sync work that follows a
// payment being committed as paid.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeSyncPassengers = "payment:sync_passengers"

	queueName = "reconciliation"
	maxRetry  = 10
)

// SyncPassengersPayload identifies the payment whose passengers need syncing.
type SyncPassengersPayload struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason,omitempty"`
}

// NewSyncPassengersTask builds the task. The task id is derived from the
// payment id so repeated enqueues for the same payment collapse into one.
func NewSyncPassengersTask(p SyncPassengersPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSyncPassengers, b)
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID("sync:" + p.PaymentID),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

// Enqueuer submits sync tasks to Redis.
type Enqueuer struct {
	Client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{Client: asynq.NewClient(opt)}
}

// EnqueuePassengerSync schedules a sync. A task already queued for the same
// payment is treated as success.
func (e *Enqueuer) EnqueuePassengerSync(ctx context.Context, paymentID, reason string) error {
	if e == nil || e.Client == nil {
		return fmt.Errorf("queue tidak dikonfigurasi")
	}
	task, opts, err := NewSyncPassengersTask(SyncPassengersPayload{PaymentID: paymentID, Reason: reason})
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return err
	}
	return nil
}

func (e *Enqueuer) Close() error {
	if e == nil || e.Client == nil {
		return nil
	}
	return e.Client.Close()
}
