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

	"github.com/google/uuid"
)

type PassengerRepository struct {
	DB *sql.DB
}

const passengerColumns = `id, COALESCE(trip_id,''), COALESCE(source_id,''), name,
	COALESCE(document,''), COALESCE(phone,''), COALESCE(instrument,''),
	COALESCE(congregation,''), COALESCE(marital_status,''), COALESCE(age,0),
	COALESCE(seat_code,''), COALESCE(payment_status,'Pending'),
	COALESCE(amount_paid_cents,0), COALESCE(paid_by,'')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassenger(row rowScanner) (models.Passenger, error) {
	var (
		p      models.Passenger
		status string
	)
	if err := row.Scan(
		&p.ID,
		&p.TripID,
		&p.SourceID,
		&p.Name,
		&p.Document,
		&p.Phone,
		&p.Instrument,
		&p.Congregation,
		&p.MaritalStatus,
		&p.Age,
		&p.SeatCode,
		&status,
		&p.AmountPaidCents,
		&p.PaidBy,
	); err != nil {
		return models.Passenger{}, err
	}
	p.PaymentStatus = domain.PassengerPaymentStatus(status)
	p.Name = strings.TrimSpace(p.Name)
	p.SeatCode = strings.ToUpper(strings.TrimSpace(p.SeatCode))
	return p, nil
}

// GetByID fetches one passenger. A missing row yields domain.NotFoundError.
func (r PassengerRepository) GetByID(ctx context.Context, id string) (models.Passenger, error) {
	db := pickDB(r.DB)
	if db == nil {
		return models.Passenger{}, fmt.Errorf("db tidak tersedia untuk passengers")
	}
	p, err := scanPassenger(db.QueryRowContext(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Passenger{}, domain.NotFoundError{Resource: "passenger", Err: err}
		}
		return models.Passenger{}, err
	}
	return p, nil
}

// ListByIDs returns the passengers found among ids, in no particular order.
func (r PassengerRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Passenger, error) {
	if len(ids) == 0 {
		return []models.Passenger{}, nil
	}
	db := pickDB(r.DB)
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia untuk passengers")
	}
	ph, args := inClause(ids)
	rows, err := db.QueryContext(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Passenger{}
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CloneIntoTrip copies the identity fields of src into a Pending record scoped
// to tripID and returns the clone id. UNIQUE(source_id, trip_id) makes the
// insert converge: when a clone of the same master already exists in the trip,
// that clone's id is returned instead.
func (r PassengerRepository) CloneIntoTrip(ctx context.Context, src models.Passenger, tripID string) (string, error) {
	db := pickDB(r.DB)
	if db == nil {
		return "", fmt.Errorf("db tidak tersedia untuk passengers")
	}
	if strings.TrimSpace(tripID) == "" {
		return "", domain.ValidationError{Field: "trip_id", Msg: "kosong"}
	}

	newID := uuid.NewString()
	rootID := src.RootID()
	_, err := db.ExecContext(ctx, `
		INSERT INTO passengers
			(id, trip_id, source_id, name, document, phone, instrument, congregation, marital_status, age, payment_status, amount_paid_cents)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE source_id=source_id`,
		newID,
		tripID,
		rootID,
		src.Name,
		src.Document,
		src.Phone,
		src.Instrument,
		src.Congregation,
		src.MaritalStatus,
		src.Age,
		string(domain.PassengerPending),
	)
	if err != nil {
		return "", fmt.Errorf("clone passenger %s: %w", src.ID, err)
	}

	var id string
	if err := db.QueryRowContext(ctx, `SELECT id FROM passengers WHERE source_id=? AND trip_id=? LIMIT 1`, rootID, tripID).Scan(&id); err != nil {
		return "", fmt.Errorf("read clone of %s: %w", src.ID, err)
	}
	return id, nil
}

// SetPaidBy stamps the payer on every passenger in ids.
func (r PassengerRepository) SetPaidBy(ctx context.Context, ids []string, payerID string) error {
	if len(ids) == 0 || strings.TrimSpace(payerID) == "" {
		return nil
	}
	db := pickDB(r.DB)
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk passengers")
	}
	ph, args := inClause(ids)
	_, err := db.ExecContext(ctx, `UPDATE passengers SET paid_by=? WHERE id IN (`+ph+`)`, append([]any{payerID}, args...)...)
	return err
}

// MarkPaid sets Paid + amount on the ids that belong to tripID. Rows in other
// trips (including master records) are never touched.
func (r PassengerRepository) MarkPaid(ctx context.Context, tripID string, ids []string, amountCents int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := pickDB(r.DB)
	if db == nil {
		return 0, fmt.Errorf("db tidak tersedia untuk passengers")
	}
	ph, args := inClause(ids)
	res, err := db.ExecContext(ctx,
		`UPDATE passengers SET payment_status=?, amount_paid_cents=? WHERE trip_id=? AND id IN (`+ph+`)`,
		append([]any{string(domain.PassengerPaid), amountCents, tripID}, args...)...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetSeatCode records the seat a passenger now holds.
func (r PassengerRepository) SetSeatCode(ctx context.Context, id, seatCode string) error {
	db := pickDB(r.DB)
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk passengers")
	}
	_, err := db.ExecContext(ctx, `UPDATE passengers SET seat_code=? WHERE id=?`, intdb.NullIfEmpty(seatCode), id)
	return err
}

// ClearSeatCode unsets seatCode on whichever passenger of tripID holds it.
func (r PassengerRepository) ClearSeatCode(ctx context.Context, tripID, passengerID, seatCode string) error {
	db := pickDB(r.DB)
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk passengers")
	}
	_, err := db.ExecContext(ctx, `UPDATE passengers SET seat_code=NULL WHERE id=? AND trip_id=? AND seat_code=?`, passengerID, tripID, seatCode)
	return err
}
