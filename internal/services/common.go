package services

import (
	"context"
	"time"

	"tripbook/internal/cache"
	"tripbook/internal/utils"

	"go.uber.org/zap"
)

// StatusStore is the payment status cache seen by services.
type StatusStore interface {
	Get(ctx context.Context, paymentID string) (cache.PaymentStatus, bool, error)
	Set(ctx context.Context, st cache.PaymentStatus) error
	Invalidate(ctx context.Context, paymentID string) error
}

func scopedLogger(l *zap.Logger, requestID, module string) *zap.Logger {
	if l == nil {
		l = utils.Logger()
	}
	return l.With(zap.String("module", module), zap.String("request_id", requestID))
}

func nowOr(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return utils.NowUTC()
}

func invalidateStatus(ctx context.Context, store StatusStore, paymentID string, log *zap.Logger) {
	if store == nil {
		return
	}
	if err := store.Invalidate(ctx, paymentID); err != nil {
		log.Warn("status cache invalidate failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
}
