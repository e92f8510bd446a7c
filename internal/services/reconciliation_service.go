package services

import (
	"context"
	"fmt"
	"time"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/repositories"

	"go.uber.org/zap"
)

// OrphanAfter is how long a pending payment may go without a gateway charge
// before the sweep marks it failed: the charge lifetime plus a grace period.
const OrphanAfter = time.Hour + 15*time.Minute

type ReconciliationService struct {
	Payments   repositories.PaymentRepository
	Passengers repositories.PassengerRepository
	Cache      StatusStore
	Logger     *zap.Logger
	RequestID  string
}

type SyncReport struct {
	Payments          int      `json:"payments"`
	PassengersUpdated int64    `json:"passengersUpdated"`
	Failed            []string `json:"failed"`
}

type PassengerDrift struct {
	PassengerID     string `json:"passengerId"`
	Found           bool   `json:"found"`
	TripID          string `json:"tripId,omitempty"`
	TripMatch       bool   `json:"tripMatch"`
	PaymentStatus   string `json:"paymentStatus,omitempty"`
	AmountPaidCents int64  `json:"amountPaidCents"`
	InSync          bool   `json:"inSync"`
}

// DriftReport compares a payment with the passengers it pays for.
type DriftReport struct {
	PaymentID         string           `json:"paymentId"`
	TripID            string           `json:"tripId"`
	Status            string           `json:"status"`
	TotalAmountCents  int64            `json:"totalAmountCents"`
	PerPassengerCents int64            `json:"perPassengerCents"`
	Passengers        []PassengerDrift `json:"passengers"`
	InSync            bool             `json:"inSync"`
}

type SweepReport struct {
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// SyncPaidPayments re-applies every paid payment to its passengers. A payment
// that fails is reported and the rest continue.
func (s ReconciliationService) SyncPaidPayments(ctx context.Context) (SyncReport, error) {
	log := scopedLogger(s.Logger, s.RequestID, "reconcile")
	rep := SyncReport{Failed: []string{}}

	paid, err := s.Payments.ListByStatus(ctx, domain.PaymentPaid)
	if err != nil {
		return rep, domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}
	for _, p := range paid {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		n, err := SyncPaidPassengers(ctx, s.Passengers, p)
		if err != nil {
			log.Error("passenger sync failed", zap.String("payment_id", p.ID), zap.Error(err))
			rep.Failed = append(rep.Failed, p.ID)
			continue
		}
		rep.Payments++
		rep.PassengersUpdated += n
	}
	log.Info("paid payments synced",
		zap.Int("payments", rep.Payments),
		zap.Int64("passengers_updated", rep.PassengersUpdated),
		zap.Int("failed", len(rep.Failed)),
	)
	return rep, nil
}

// SyncPayment re-applies one payment. A payment that is not paid yet is left
// alone and reports zero updates.
func (s ReconciliationService) SyncPayment(ctx context.Context, paymentID string) (int64, error) {
	log := scopedLogger(s.Logger, s.RequestID, "reconcile")
	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if domain.IsNotFound(err) {
			return 0, err
		}
		return 0, domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}
	if p.Status != domain.PaymentPaid {
		log.Info("payment not paid; nothing to sync", zap.String("payment_id", p.ID), zap.String("status", string(p.Status)))
		return 0, nil
	}
	n, err := SyncPaidPassengers(ctx, s.Passengers, p)
	if err != nil {
		return 0, fmt.Errorf("sync passengers of %s: %w", p.ID, err)
	}
	log.Info("payment synced", zap.String("payment_id", p.ID), zap.Int64("passengers_updated", n))
	return n, nil
}

// CheckLatest reports drift for the most recent payment without writing.
func (s ReconciliationService) CheckLatest(ctx context.Context) (DriftReport, error) {
	p, err := s.Payments.Latest(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return DriftReport{}, err
		}
		return DriftReport{}, domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}
	found, err := s.Passengers.ListByIDs(ctx, p.PassengerIDs)
	if err != nil {
		return DriftReport{}, domain.InternalError{Msg: "gagal memuat penumpang", Err: err}
	}
	return buildDrift(p, found), nil
}

func buildDrift(p models.Payment, found []models.Passenger) DriftReport {
	byID := make(map[string]models.Passenger, len(found))
	for _, ps := range found {
		byID[ps.ID] = ps
	}

	rep := DriftReport{
		PaymentID:         p.ID,
		TripID:            p.TripID,
		Status:            string(p.Status),
		TotalAmountCents:  p.TotalAmountCents,
		PerPassengerCents: p.PerPassengerCents(),
		Passengers:        make([]PassengerDrift, 0, len(p.PassengerIDs)),
		InSync:            true,
	}
	wantPaid := p.Status == domain.PaymentPaid
	for _, id := range p.PassengerIDs {
		d := PassengerDrift{PassengerID: id}
		if ps, ok := byID[id]; ok {
			d.Found = true
			d.TripID = ps.TripID
			d.TripMatch = ps.TripID == p.TripID
			d.PaymentStatus = string(ps.PaymentStatus)
			d.AmountPaidCents = ps.AmountPaidCents
			isPaid := ps.PaymentStatus == domain.PassengerPaid
			d.InSync = d.TripMatch && isPaid == wantPaid
			if wantPaid && ps.AmountPaidCents != rep.PerPassengerCents {
				d.InSync = false
			}
		}
		if !d.InSync {
			rep.InSync = false
		}
		rep.Passengers = append(rep.Passengers, d)
	}
	return rep
}

// SweepStale resolves pending payments the gateway will never complete:
// charges past their expiry become expired, rows that never got a charge
// become failed once older than OrphanAfter.
func (s ReconciliationService) SweepStale(ctx context.Context, now time.Time) (SweepReport, error) {
	log := scopedLogger(s.Logger, s.RequestID, "reconcile")
	now = now.UTC()
	var rep SweepReport

	stale, err := s.Payments.ListStalePending(ctx, now, now.Add(-OrphanAfter))
	if err != nil {
		return rep, domain.InternalError{Msg: "gagal memuat pembayaran", Err: err}
	}
	for _, p := range stale {
		next := domain.PaymentFailed
		if p.GatewayID != "" || (p.ExpiresAt != nil && p.ExpiresAt.Before(now)) {
			next = domain.PaymentExpired
		}
		changed, err := s.Payments.TransitionPending(ctx, p.ID, next)
		if err != nil {
			log.Error("stale transition failed", zap.String("payment_id", p.ID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		invalidateStatus(ctx, s.Cache, p.ID, log)
		if next == domain.PaymentExpired {
			rep.Expired++
		} else {
			rep.Failed++
		}
	}
	log.Info("stale payments swept", zap.Int("expired", rep.Expired), zap.Int("failed", rep.Failed))
	return rep, nil
}
