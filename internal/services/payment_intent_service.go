package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tripbook/internal/cache"
	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/gateway"
	"tripbook/internal/repositories"
	"tripbook/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeGateway creates PIX charges.
type ChargeGateway interface {
	CreateCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.Charge, error)
}

// CreatePaymentInput is the checkout intent.
type CreatePaymentInput struct {
	TripID       string
	PassengerIDs []string
	PayerName    string
	PayerEmail   string
	PayerID      string
}

// PaymentIntent is what the payer needs to pay: the PIX copy-paste code and QR.
type PaymentIntent struct {
	ID               string     `json:"id"`
	BrCode           string     `json:"brCode"`
	QRCodeImage      string     `json:"qrCodeImage"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	DatabaseID       string     `json:"databaseId"`
	TotalAmountCents int64      `json:"totalAmountCents"`
	PassengerIDs     []string   `json:"passengerIds"`
}

type PaymentIntentService struct {
	Trips     repositories.TripRepository
	Payments  repositories.PaymentRepository
	Resolver  PassengerResolver
	Gateway   ChargeGateway
	Cache     StatusStore
	Logger    *zap.Logger
	RequestID string
	Now       func() time.Time
	NewID     func() string
}

// CreatePayment writes the pending payment header before calling the gateway,
// so a crash mid-way leaves a recoverable pending row instead of an orphaned
// charge. A gateway failure is returned as domain.GatewayError and the row
// stays pending.
func (s PaymentIntentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (PaymentIntent, error) {
	log := scopedLogger(s.Logger, s.RequestID, "payment_intent")

	in.TripID = strings.TrimSpace(in.TripID)
	if in.TripID == "" {
		return PaymentIntent{}, domain.ValidationError{Field: "tripId", Msg: "wajib diisi"}
	}
	if len(utils.UniqueNonEmpty(in.PassengerIDs)) == 0 {
		return PaymentIntent{}, domain.ValidationError{Field: "passengerIds", Msg: "wajib diisi"}
	}
	if s.Gateway == nil {
		return PaymentIntent{}, domain.GatewayError{Msg: "gateway tidak dikonfigurasi"}
	}

	trip, err := s.Trips.GetByID(ctx, in.TripID)
	if err != nil {
		return PaymentIntent{}, err
	}

	resolver := s.Resolver
	if resolver.RequestID == "" {
		resolver.RequestID = s.RequestID
	}
	passengerIDs, err := resolver.Resolve(ctx, trip.ID, in.PassengerIDs, in.PayerID)
	if err != nil {
		return PaymentIntent{}, err
	}
	if len(passengerIDs) == 0 {
		return PaymentIntent{}, domain.ValidationError{Field: "passengerIds", Msg: "tidak ada penumpang yang valid"}
	}

	unitCents := utils.ToCents(trip.Price)
	total := utils.TotalCents(trip.Price, len(passengerIDs))

	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	payment := models.Payment{
		ID:               id,
		TripID:           trip.ID,
		Status:           domain.PaymentPending,
		PassengerIDs:     passengerIDs,
		TotalAmountCents: total,
		PayerName:        strings.TrimSpace(in.PayerName),
		PayerEmail:       strings.TrimSpace(in.PayerEmail),
		PayerID:          strings.TrimSpace(in.PayerID),
		CreatedAt:        nowOr(s.Now),
	}
	if err := s.Payments.Create(ctx, payment); err != nil {
		log.Error("payment insert failed", zap.String("trip_id", trip.ID), zap.Error(err))
		return PaymentIntent{}, domain.InternalError{Msg: "gagal menyimpan pembayaran", Err: err}
	}

	req := gateway.ChargeRequest{
		CorrelationID: payment.ID,
		Value:         total,
		Comment:       chargeComment(trip, len(passengerIDs)),
		ExpiresIn:     gateway.ChargeExpiresIn,
	}
	if payment.PayerName != "" || payment.PayerEmail != "" {
		req.Customer = &gateway.Customer{Name: payment.PayerName, Email: payment.PayerEmail}
	}

	charge, err := s.Gateway.CreateCharge(ctx, req)
	if err != nil {
		log.Error("gateway charge failed; payment left pending",
			zap.String("correlation_id", payment.ID),
			zap.Int64("value", total),
			zap.Error(err),
		)
		if _, ok := domain.AsGatewayError(err); ok {
			return PaymentIntent{}, err
		}
		return PaymentIntent{}, domain.GatewayError{Msg: "gagal membuat charge", Err: err}
	}

	info := repositories.ChargeInfo{
		GatewayID:   utils.FirstNonEmpty(charge.Identifier, charge.GlobalID),
		GatewayTxID: charge.TransactionID,
		BrCode:      charge.BrCode,
		QRCodeImage: charge.QRCodeImage,
		ExpiresAt:   charge.ExpiresAt(),
	}
	if info.ExpiresAt == nil {
		exp := payment.CreatedAt.Add(gateway.ChargeExpiresIn * time.Second)
		info.ExpiresAt = &exp
	}
	// The charge exists at the gateway from here on; local write failures are
	// logged and the webhook still finds the row by correlation id.
	if err := s.Payments.SetCharge(ctx, payment.ID, info); err != nil {
		log.Error("storing gateway charge failed", zap.String("correlation_id", payment.ID), zap.Error(err))
	}

	items := make([]models.PassengerPayment, 0, len(passengerIDs))
	for _, pid := range passengerIDs {
		items = append(items, models.PassengerPayment{PaymentID: payment.ID, PassengerID: pid, AmountCents: unitCents})
	}
	if err := s.Payments.InsertLineItems(ctx, items); err != nil {
		log.Error("passenger_payments insert failed", zap.String("payment_id", payment.ID), zap.Error(err))
	}

	log.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("trip_id", trip.ID),
		zap.Int("passengers", len(passengerIDs)),
		zap.Int64("total_cents", total),
	)

	return PaymentIntent{
		ID:               payment.ID,
		BrCode:           info.BrCode,
		QRCodeImage:      info.QRCodeImage,
		ExpiresAt:        info.ExpiresAt,
		DatabaseID:       payment.ID,
		TotalAmountCents: total,
		PassengerIDs:     passengerIDs,
	}, nil
}

// GetStatus serves status polling, read-through the status cache. Only paid
// is cached: every other status can still change under a concurrent webhook,
// and a poll racing the webhook's invalidation would re-cache the old value.
func (s PaymentIntentService) GetStatus(ctx context.Context, paymentID string) (cache.PaymentStatus, error) {
	log := scopedLogger(s.Logger, s.RequestID, "payment_intent")
	if s.Cache != nil {
		st, ok, err := s.Cache.Get(ctx, paymentID)
		if err != nil {
			log.Warn("status cache read failed", zap.String("payment_id", paymentID), zap.Error(err))
		} else if ok {
			return st, nil
		}
	}

	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return cache.PaymentStatus{}, err
	}
	st := cache.PaymentStatus{ID: p.ID, Status: string(p.Status), PaidAt: p.PaidAt}
	if s.Cache != nil && p.Status == domain.PaymentPaid {
		if err := s.Cache.Set(ctx, st); err != nil {
			log.Warn("status cache write failed", zap.String("payment_id", paymentID), zap.Error(err))
		}
	}
	return st, nil
}

const maxCommentRunes = 140

func chargeComment(trip models.Trip, seats int) string {
	name := utils.NormalizeSpace(trip.Name)
	if name == "" {
		name = "Viagem"
	}
	comment := fmt.Sprintf("%s - %d passageiro(s)", name, seats)
	// The gateway caps comment length.
	if r := []rune(comment); len(r) > maxCommentRunes {
		comment = string(r[:maxCommentRunes])
	}
	return comment
}
