// Package cache keeps short-lived copies of payment status for UI polling.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL bounds how stale a polled status can be if an invalidation is lost.
const DefaultTTL = 30 * time.Second

// PaymentStatus is the cached polling view of a payment.
type PaymentStatus struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

// StatusCache stores PaymentStatus values in Redis.
type StatusCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewStatusCache wraps an existing client.
func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{Client: client, TTL: DefaultTTL}
}

// NewRedisClient dials Redis and pings it once.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func key(paymentID string) string {
	return "payment:status:" + paymentID
}

// Get returns the cached status. ok is false on a miss.
func (c *StatusCache) Get(ctx context.Context, paymentID string) (PaymentStatus, bool, error) {
	if c == nil || c.Client == nil {
		return PaymentStatus{}, false, nil
	}
	raw, err := c.Client.Get(ctx, key(paymentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PaymentStatus{}, false, nil
	}
	if err != nil {
		return PaymentStatus{}, false, err
	}
	var out PaymentStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return PaymentStatus{}, false, err
	}
	return out, true, nil
}

func (c *StatusCache) Set(ctx context.Context, st PaymentStatus) error {
	if c == nil || c.Client == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.Client.Set(ctx, key(st.ID), raw, ttl).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, paymentID string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, key(paymentID)).Err()
}
