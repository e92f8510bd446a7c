package services

import (
	"context"
	"time"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/repositories"

	"go.uber.org/zap"
)

// WebhookOutcome says what a delivery did. Every outcome maps to HTTP 200.
type WebhookOutcome string

const (
	OutcomeTest             WebhookOutcome = "test"
	OutcomeIgnored          WebhookOutcome = "ignored"
	OutcomeCompleted        WebhookOutcome = "completed"
	OutcomeAlreadyProcessed WebhookOutcome = "already_processed"
	OutcomeExpired          WebhookOutcome = "expired"
	OutcomeExpireIgnored    WebhookOutcome = "expire_ignored"
)

// PassengerSyncQueue accepts retryable passenger-sync work.
type PassengerSyncQueue interface {
	EnqueuePassengerSync(ctx context.Context, paymentID, reason string) error
}

type WebhookProcessor struct {
	Payments   repositories.PaymentRepository
	Passengers repositories.PassengerRepository
	Verifier   *SignatureVerifier
	Queue      PassengerSyncQueue
	Cache      StatusStore
	Logger     *zap.Logger
	RequestID  string
	Now        func() time.Time
}

// Process applies one gateway delivery. raw must be the exact request bytes.
//
// Errors: domain.UnauthorizedError on a bad signature, domain.NotFoundError for
// an unknown correlation id, domain.InternalError for store failures. Events
// that are not understood never produce an error.
func (p WebhookProcessor) Process(ctx context.Context, raw []byte, signature string) (WebhookOutcome, error) {
	log := scopedLogger(p.Logger, p.RequestID, "webhook")

	ev, decodeErr := DecodeGatewayEvent(raw)
	if decodeErr == nil && ev.Kind == EventTest {
		log.Info("webhook connectivity test received")
		return OutcomeTest, nil
	}

	if p.Verifier.Enabled() && !p.Verifier.Verify(raw, signature) {
		log.Warn("webhook signature mismatch",
			zap.String("received_signature", signature),
			zap.String("event", ev.RawType),
			zap.String("correlation_id", ev.CorrelationID),
			zap.Int("body_bytes", len(raw)),
		)
		return "", domain.UnauthorizedError{Msg: "signature tidak valid"}
	}

	if decodeErr != nil {
		if ev.Kind == EventChargeCompleted || ev.Kind == EventChargeExpired {
			// 500 so the gateway redelivers.
			log.Error("webhook charge not decodable",
				zap.String("event", ev.RawType),
				zap.String("correlation_id", ev.CorrelationID),
				zap.Error(decodeErr),
			)
			return "", domain.InternalError{Msg: "payload webhook tidak dapat dibaca", Err: decodeErr}
		}
		log.Warn("webhook body not decodable; ignored", zap.Error(decodeErr))
		return OutcomeIgnored, nil
	}
	if ev.Kind == EventUnknown {
		log.Info("webhook event ignored", zap.String("event", ev.RawType), zap.String("correlation_id", ev.CorrelationID))
		return OutcomeIgnored, nil
	}
	if ev.CorrelationID == "" {
		log.Warn("webhook without correlation id; ignored", zap.String("event", ev.RawType))
		return OutcomeIgnored, nil
	}

	payment, err := p.Payments.GetByID(ctx, ev.CorrelationID)
	if err != nil {
		if domain.IsNotFound(err) {
			log.Error("webhook for unknown payment", zap.String("event", ev.RawType), zap.String("correlation_id", ev.CorrelationID))
			return "", err
		}
		return "", domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}

	fields := []zap.Field{
		zap.String("event", ev.RawType),
		zap.String("correlation_id", payment.ID),
		zap.String("stored_status", string(payment.Status)),
	}

	switch ev.Kind {
	case EventChargeCompleted:
		return p.complete(ctx, log, payment, ev, raw, fields)
	case EventChargeExpired:
		return p.expire(ctx, log, payment, raw, fields)
	}
	return OutcomeIgnored, nil
}

func (p WebhookProcessor) complete(ctx context.Context, log *zap.Logger, payment models.Payment, ev GatewayEvent, raw []byte, fields []zap.Field) (WebhookOutcome, error) {
	changed, err := p.Payments.MarkPaid(ctx, payment.ID, repositories.Completion{
		PaidAt:          nowOr(p.Now),
		GatewayTxID:     ev.Charge.TxID,
		FeeCents:        ev.Charge.FeeCents,
		ProviderPayload: raw,
	})
	if err != nil {
		log.Error("mark paid failed", append(fields, zap.Error(err))...)
		return "", domain.InternalError{Msg: "gagal memperbarui pembayaran", Err: err}
	}
	if !changed {
		log.Info("payment already paid; duplicate delivery ignored", fields...)
		return OutcomeAlreadyProcessed, nil
	}
	invalidateStatus(ctx, p.Cache, payment.ID, log)

	// The payment is committed as paid from here on. Passenger sync is a
	// separate write; on failure it is queued and the reconciliation sweep
	// covers anything the queue misses.
	n, err := SyncPaidPassengers(ctx, p.Passengers, payment)
	if err != nil {
		log.Error("passenger sync failed after payment marked paid", append(fields, zap.Error(err))...)
		if p.Queue != nil {
			if qerr := p.Queue.EnqueuePassengerSync(ctx, payment.ID, "webhook"); qerr != nil {
				log.Error("passenger sync enqueue failed", append(fields, zap.Error(qerr))...)
			}
		}
		return OutcomeCompleted, nil
	}
	log.Info("payment completed", append(fields,
		zap.Int64("passengers_updated", n),
		zap.Int64("per_passenger_cents", payment.PerPassengerCents()),
	)...)
	return OutcomeCompleted, nil
}

func (p WebhookProcessor) expire(ctx context.Context, log *zap.Logger, payment models.Payment, raw []byte, fields []zap.Field) (WebhookOutcome, error) {
	changed, err := p.Payments.MarkExpired(ctx, payment.ID, raw)
	if err != nil {
		log.Error("mark expired failed", append(fields, zap.Error(err))...)
		return "", domain.InternalError{Msg: "gagal memperbarui pembayaran", Err: err}
	}
	if !changed {
		log.Info("late expiry ignored for paid payment", fields...)
		return OutcomeExpireIgnored, nil
	}
	invalidateStatus(ctx, p.Cache, payment.ID, log)
	log.Info("payment expired", fields...)
	return OutcomeExpired, nil
}

// SyncPaidPassengers marks every passenger of a paid payment, restricted to
// the payment's trip, as Paid with the per-passenger share. It is idempotent
// and shared by the webhook path and the reconciliation sweep.
func SyncPaidPassengers(ctx context.Context, passengers repositories.PassengerRepository, payment models.Payment) (int64, error) {
	if len(payment.PassengerIDs) == 0 {
		return 0, nil
	}
	return passengers.MarkPaid(ctx, payment.TripID, payment.PassengerIDs, payment.PerPassengerCents())
}
