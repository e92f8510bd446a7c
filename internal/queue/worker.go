package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// PaymentSyncer re-applies the paid state of one payment to its passengers.
type PaymentSyncer interface {
	SyncPayment(ctx context.Context, paymentID string) (int64, error)
}

// NewWorker builds the asynq server that drains the reconciliation queue.
func NewWorker(opt asynq.RedisClientOpt, syncer PaymentSyncer, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			queueName: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSyncPassengers, HandleSyncPassengers(syncer, logger))
	return srv, mux
}

// HandleSyncPassengers returns the task handler. A malformed payload is not
// retried; store errors are, via asynq's retry policy.
func HandleSyncPassengers(syncer PaymentSyncer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p SyncPassengersPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.PaymentID == "" {
			logger.Error("invalid sync payload", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		n, err := syncer.SyncPayment(ctx, p.PaymentID)
		if err != nil {
			logger.Warn("passenger sync retry failed", zap.String("payment_id", p.PaymentID), zap.Error(err))
			return err
		}
		logger.Info("passenger sync applied", zap.String("payment_id", p.PaymentID), zap.Int64("passengers", n), zap.String("reason", p.Reason))
		return nil
	}
}
