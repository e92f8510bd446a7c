package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intdb "tripbook/internal/db"
	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
)

type SeatAssignmentRepository struct {
	DB *sql.DB
}

// SeatKey is the natural key of a seat assignment.
type SeatKey struct {
	TripID   string
	BusID    string
	SeatCode string
}

func (k SeatKey) normalized() SeatKey {
	return SeatKey{
		TripID:   strings.TrimSpace(k.TripID),
		BusID:    strings.TrimSpace(k.BusID),
		SeatCode: strings.ToUpper(strings.TrimSpace(k.SeatCode)),
	}
}

// Upsert writes the seat row keyed on (trip_id, bus_id, seat_code). The last
// writer wins; the unique key keeps exactly one row per seat.
func (r SeatAssignmentRepository) Upsert(ctx context.Context, key SeatKey, passengerID string, status domain.SeatStatus) error {
	db := pickDB(r.DB)
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk seat_assignments")
	}
	k := key.normalized()
	_, err := db.ExecContext(ctx, `
		INSERT INTO seat_assignments (trip_id, bus_id, seat_code, passenger_id, status)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE passenger_id=VALUES(passenger_id), status=VALUES(status)`,
		k.TripID, k.BusID, k.SeatCode, intdb.NullIfEmpty(passengerID), string(status),
	)
	return err
}

// Delete frees the seat. Deleting an absent row is not an error.
func (r SeatAssignmentRepository) Delete(ctx context.Context, key SeatKey) error {
	db := pickDB(r.DB)
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk seat_assignments")
	}
	k := key.normalized()
	_, err := db.ExecContext(ctx, `DELETE FROM seat_assignments WHERE trip_id=? AND bus_id=? AND seat_code=?`, k.TripID, k.BusID, k.SeatCode)
	return err
}

// Get returns the seat row; an absent row is reported as a free seat.
func (r SeatAssignmentRepository) Get(ctx context.Context, key SeatKey) (models.SeatAssignment, error) {
	k := key.normalized()
	out := models.SeatAssignment{TripID: k.TripID, BusID: k.BusID, SeatCode: k.SeatCode, Status: domain.SeatFree}
	db := pickDB(r.DB)
	if db == nil {
		return out, fmt.Errorf("db tidak tersedia untuk seat_assignments")
	}

	var (
		passengerID sql.NullString
		status      string
		updatedAt   sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
		SELECT passenger_id, status, updated_at
		FROM seat_assignments
		WHERE trip_id=? AND bus_id=? AND seat_code=? LIMIT 1`,
		k.TripID, k.BusID, k.SeatCode).Scan(&passengerID, &status, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, nil
		}
		return out, err
	}
	out.PassengerID = nullString(passengerID)
	out.Status = domain.SeatStatus(status)
	if updatedAt.Valid {
		out.UpdatedAt = updatedAt.Time
	}
	return out, nil
}

// List returns the stored (non-free) seats of one bus on one trip.
func (r SeatAssignmentRepository) List(ctx context.Context, tripID, busID string) ([]models.SeatAssignment, error) {
	return r.list(ctx, `WHERE trip_id=? AND bus_id=? ORDER BY seat_code ASC`,
		strings.TrimSpace(tripID), strings.TrimSpace(busID))
}

// ListByPassenger returns every seat the passenger holds on the trip, across buses.
func (r SeatAssignmentRepository) ListByPassenger(ctx context.Context, tripID, passengerID string) ([]models.SeatAssignment, error) {
	return r.list(ctx, `WHERE trip_id=? AND passenger_id=? ORDER BY bus_id ASC, seat_code ASC`,
		strings.TrimSpace(tripID), strings.TrimSpace(passengerID))
}

func (r SeatAssignmentRepository) list(ctx context.Context, tail string, args ...any) ([]models.SeatAssignment, error) {
	db := pickDB(r.DB)
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia untuk seat_assignments")
	}
	rows, err := db.QueryContext(ctx, `
		SELECT trip_id, bus_id, seat_code, passenger_id, status, updated_at
		FROM seat_assignments `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SeatAssignment{}
	for rows.Next() {
		var (
			s           models.SeatAssignment
			passengerID sql.NullString
			status      string
			updatedAt   sql.NullTime
		)
		if err := rows.Scan(&s.TripID, &s.BusID, &s.SeatCode, &passengerID, &status, &updatedAt); err != nil {
			return out, err
		}
		s.PassengerID = nullString(passengerID)
		s.Status = domain.SeatStatus(status)
		if updatedAt.Valid {
			s.UpdatedAt = updatedAt.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
