package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type fakeSyncer struct {
	calls []string
	err   error
}

func (f *fakeSyncer) SyncPayment(_ context.Context, id string) (int64, error) {
	f.calls = append(f.calls, id)
	return 3, f.err
}

func TestHandleSyncPassengersCallsSyncer(t *testing.T) {
	syncer := &fakeSyncer{}
	h := HandleSyncPassengers(syncer, zap.NewNop())

	task, _, err := NewSyncPassengersTask(SyncPassengersPayload{PaymentID: "pay-1", Reason: "webhook"})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h(context.Background(), task); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(syncer.calls) != 1 || syncer.calls[0] != "pay-1" {
		t.Fatalf("unexpected calls: %v", syncer.calls)
	}
}

func TestHandleSyncPassengersSkipsRetryOnBadPayload(t *testing.T) {
	h := HandleSyncPassengers(&fakeSyncer{}, zap.NewNop())
	err := h(context.Background(), asynq.NewTask(TypeSyncPassengers, []byte(`{}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleSyncPassengersPropagatesStoreError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("deadlock")}
	h := HandleSyncPassengers(syncer, zap.NewNop())
	b, _ := json.Marshal(SyncPassengersPayload{PaymentID: "pay-2"})
	if err := h(context.Background(), asynq.NewTask(TypeSyncPassengers, b)); err == nil {
		t.Fatalf("expected error to trigger retry")
	}
}
