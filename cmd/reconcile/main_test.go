package main

import (
	"context"
	"testing"

	intconfig "tripbook/internal/config"

	"go.uber.org/zap"
)

func TestStatusStoreDisabledWithoutRedis(t *testing.T) {
	store, closeFn := statusStore(context.Background(), intconfig.Env{}, zap.NewNop())
	defer closeFn()
	if store != nil {
		t.Fatalf("expected no store, got %T", store)
	}
}

func TestStatusStoreUnreachableRedisIsSkipped(t *testing.T) {
	env := intconfig.Env{RedisAddr: "127.0.0.1:1"}
	store, closeFn := statusStore(context.Background(), env, zap.NewNop())
	defer closeFn()
	if store != nil {
		t.Fatalf("expected no store for unreachable redis, got %T", store)
	}
}
