package services

import (
	"context"
	"strings"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/repositories"
	"tripbook/internal/utils"

	"go.uber.org/zap"
)

type SeatService struct {
	Seats      repositories.SeatAssignmentRepository
	Passengers repositories.PassengerRepository
	Logger     *zap.Logger
	RequestID  string
}

func seatKey(tripID, busID, seatCode string) (repositories.SeatKey, error) {
	k := repositories.SeatKey{
		TripID:   strings.TrimSpace(tripID),
		BusID:    strings.TrimSpace(busID),
		SeatCode: utils.NormalizeSeatCode(seatCode),
	}
	switch {
	case k.TripID == "":
		return k, domain.ValidationError{Field: "tripId", Msg: "wajib diisi"}
	case k.BusID == "":
		return k, domain.ValidationError{Field: "busId", Msg: "wajib diisi"}
	case k.SeatCode == "":
		return k, domain.ValidationError{Field: "seat", Msg: "wajib diisi"}
	}
	return k, nil
}

// Assign puts passengerID on the seat. The last writer wins; whoever held the
// seat before loses their seat code, and any other seat passengerID held on
// the trip is freed.
func (s SeatService) Assign(ctx context.Context, tripID, busID, seatCode, passengerID string) (models.SeatAssignment, error) {
	log := scopedLogger(s.Logger, s.RequestID, "seats")
	k, err := seatKey(tripID, busID, seatCode)
	if err != nil {
		return models.SeatAssignment{}, err
	}
	passengerID = strings.TrimSpace(passengerID)
	if passengerID == "" {
		return models.SeatAssignment{}, domain.ValidationError{Field: "passengerId", Msg: "wajib diisi"}
	}

	prev, err := s.Seats.Get(ctx, k)
	if err != nil {
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal memuat kursi", Err: err}
	}
	if err := s.Seats.Upsert(ctx, k, passengerID, domain.SeatOccupied); err != nil {
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal menyimpan kursi", Err: err}
	}
	if prev.PassengerID != "" && prev.PassengerID != passengerID {
		s.clearPassengerSeat(ctx, log, k, prev.PassengerID)
	}
	s.releaseOtherSeats(ctx, log, k, passengerID)
	if err := s.Passengers.SetSeatCode(ctx, passengerID, k.SeatCode); err != nil {
		log.Warn("passenger seat code update failed", zap.String("passenger_id", passengerID), zap.String("seat", k.SeatCode), zap.Error(err))
	}
	log.Info("seat assigned", zap.String("trip_id", k.TripID), zap.String("bus_id", k.BusID), zap.String("seat", k.SeatCode), zap.String("passenger_id", passengerID))

	return models.SeatAssignment{TripID: k.TripID, BusID: k.BusID, SeatCode: k.SeatCode, PassengerID: passengerID, Status: domain.SeatOccupied}, nil
}

// Release frees the seat. Releasing a free seat is a no-op.
func (s SeatService) Release(ctx context.Context, tripID, busID, seatCode string) error {
	log := scopedLogger(s.Logger, s.RequestID, "seats")
	k, err := seatKey(tripID, busID, seatCode)
	if err != nil {
		return err
	}
	prev, err := s.Seats.Get(ctx, k)
	if err != nil {
		return domain.InternalError{Msg: "gagal memuat kursi", Err: err}
	}
	if err := s.Seats.Delete(ctx, k); err != nil {
		return domain.InternalError{Msg: "gagal menghapus kursi", Err: err}
	}
	if prev.PassengerID != "" {
		s.clearPassengerSeat(ctx, log, k, prev.PassengerID)
	}
	log.Info("seat released", zap.String("trip_id", k.TripID), zap.String("bus_id", k.BusID), zap.String("seat", k.SeatCode))
	return nil
}

// Block takes the seat out of sale.
func (s SeatService) Block(ctx context.Context, tripID, busID, seatCode string) (models.SeatAssignment, error) {
	log := scopedLogger(s.Logger, s.RequestID, "seats")
	k, err := seatKey(tripID, busID, seatCode)
	if err != nil {
		return models.SeatAssignment{}, err
	}
	prev, err := s.Seats.Get(ctx, k)
	if err != nil {
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal memuat kursi", Err: err}
	}
	if err := s.Seats.Upsert(ctx, k, "", domain.SeatBlocked); err != nil {
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal menyimpan kursi", Err: err}
	}
	if prev.PassengerID != "" {
		s.clearPassengerSeat(ctx, log, k, prev.PassengerID)
	}
	log.Info("seat blocked", zap.String("trip_id", k.TripID), zap.String("bus_id", k.BusID), zap.String("seat", k.SeatCode))
	return models.SeatAssignment{TripID: k.TripID, BusID: k.BusID, SeatCode: k.SeatCode, Status: domain.SeatBlocked}, nil
}

// Claim is the self-service path: a paid passenger of the trip takes a seat
// that is free or already theirs. A seat held by someone else or blocked is a
// conflict; only Assign overrides.
func (s SeatService) Claim(ctx context.Context, tripID, busID, seatCode, passengerID string) (models.SeatAssignment, error) {
	k, err := seatKey(tripID, busID, seatCode)
	if err != nil {
		return models.SeatAssignment{}, err
	}
	passengerID = strings.TrimSpace(passengerID)
	if passengerID == "" {
		return models.SeatAssignment{}, domain.ValidationError{Field: "passengerId", Msg: "wajib diisi"}
	}

	p, err := s.Passengers.GetByID(ctx, passengerID)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.SeatAssignment{}, err
		}
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal memuat penumpang", Err: err}
	}
	if p.TripID != k.TripID {
		return models.SeatAssignment{}, domain.ValidationError{Field: "passengerId", Msg: "penumpang bukan bagian dari trip ini"}
	}
	if p.PaymentStatus != domain.PassengerPaid {
		return models.SeatAssignment{}, domain.ValidationError{Field: "passengerId", Msg: "pembayaran belum lunas"}
	}

	cur, err := s.Seats.Get(ctx, k)
	if err != nil {
		return models.SeatAssignment{}, domain.InternalError{Msg: "gagal memuat kursi", Err: err}
	}
	switch {
	case cur.Status == domain.SeatBlocked:
		return models.SeatAssignment{}, domain.ConflictError{Resource: "seat", Msg: "kursi diblokir"}
	case cur.PassengerID == passengerID:
		return cur, nil
	case cur.PassengerID != "":
		return models.SeatAssignment{}, domain.ConflictError{Resource: "seat", Msg: "kursi sudah terisi"}
	}

	return s.Assign(ctx, k.TripID, k.BusID, k.SeatCode, passengerID)
}

// List returns the stored seats of a bus. Seats not listed are free.
func (s SeatService) List(ctx context.Context, tripID, busID string) ([]models.SeatAssignment, error) {
	tripID, busID = strings.TrimSpace(tripID), strings.TrimSpace(busID)
	if tripID == "" || busID == "" {
		return nil, domain.ValidationError{Msg: "tripId dan busId wajib diisi"}
	}
	out, err := s.Seats.List(ctx, tripID, busID)
	if err != nil {
		return nil, domain.InternalError{Msg: "gagal memuat kursi", Err: err}
	}
	return out, nil
}

func (s SeatService) clearPassengerSeat(ctx context.Context, log *zap.Logger, k repositories.SeatKey, passengerID string) {
	if err := s.Passengers.ClearSeatCode(ctx, k.TripID, passengerID, k.SeatCode); err != nil {
		log.Warn("clear passenger seat code failed", zap.String("passenger_id", passengerID), zap.String("seat", k.SeatCode), zap.Error(err))
	}
}

// releaseOtherSeats deletes the rows passengerID still holds on the trip
// besides k. Failures are logged; the new seat is already stored.
func (s SeatService) releaseOtherSeats(ctx context.Context, log *zap.Logger, k repositories.SeatKey, passengerID string) {
	held, err := s.Seats.ListByPassenger(ctx, k.TripID, passengerID)
	if err != nil {
		log.Warn("previous seats lookup failed", zap.String("passenger_id", passengerID), zap.Error(err))
		return
	}
	for _, seat := range held {
		if seat.BusID == k.BusID && seat.SeatCode == k.SeatCode {
			continue
		}
		old := repositories.SeatKey{TripID: seat.TripID, BusID: seat.BusID, SeatCode: seat.SeatCode}
		if err := s.Seats.Delete(ctx, old); err != nil {
			log.Warn("previous seat release failed", zap.String("passenger_id", passengerID), zap.String("bus_id", seat.BusID), zap.String("seat", seat.SeatCode), zap.Error(err))
			continue
		}
		log.Info("previous seat released", zap.String("passenger_id", passengerID), zap.String("bus_id", seat.BusID), zap.String("seat", seat.SeatCode))
	}
}
