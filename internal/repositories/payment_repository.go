package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	intdb "tripbook/internal/db"
	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
)

type PaymentRepository struct {
	DB *sql.DB
}

// ChargeInfo is what the gateway returns when a charge is created.
type ChargeInfo struct {
	GatewayID   string
	GatewayTxID string
	BrCode      string
	QRCodeImage string
	ExpiresAt   *time.Time
}

// Completion carries the fields written when a payment becomes paid.
type Completion struct {
	PaidAt          time.Time
	GatewayTxID     string
	FeeCents        int64
	ProviderPayload json.RawMessage
}

const paymentColumns = `id, trip_id, status, passenger_ids, total_amount_cents,
	COALESCE(payer_name,''), COALESCE(payer_email,''), COALESCE(payer_id,''),
	COALESCE(gateway_id,''), COALESCE(gateway_txid,''), COALESCE(br_code,''),
	COALESCE(qr_code_image,''), expires_at, paid_at, COALESCE(fee_cents,0), created_at`

func scanPayment(row rowScanner) (models.Payment, error) {
	var (
		p         models.Payment
		status    string
		ids       []byte
		expiresAt sql.NullTime
		paidAt    sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.TripID,
		&status,
		&ids,
		&p.TotalAmountCents,
		&p.PayerName,
		&p.PayerEmail,
		&p.PayerID,
		&p.GatewayID,
		&p.GatewayTxID,
		&p.BrCode,
		&p.QRCodeImage,
		&expiresAt,
		&paidAt,
		&p.FeeCents,
		&p.CreatedAt,
	); err != nil {
		return models.Payment{}, err
	}
	p.Status = domain.PaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &p.PassengerIDs); err != nil {
			return models.Payment{}, fmt.Errorf("payment %s passenger_ids: %w", p.ID, err)
		}
	}
	if p.PassengerIDs == nil {
		p.PassengerIDs = []string{}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		p.ExpiresAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}

func (r PaymentRepository) conn() (*sql.DB, error) {
	db := pickDB(r.DB)
	if db == nil {
		return nil, fmt.Errorf("db tidak tersedia untuk payments")
	}
	return db, nil
}

// Create inserts a new payment header. passenger_ids is frozen from here on.
func (r PaymentRepository) Create(ctx context.Context, p models.Payment) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	ids, err := json.Marshal(p.PassengerIDs)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO payments
			(id, trip_id, status, passenger_ids, total_amount_cents, payer_name, payer_email, payer_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID,
		p.TripID,
		string(p.Status),
		string(ids),
		p.TotalAmountCents,
		intdb.NullIfEmpty(p.PayerName),
		intdb.NullIfEmpty(p.PayerEmail),
		intdb.NullIfEmpty(p.PayerID),
		p.CreatedAt,
	)
	if intdb.IsDuplicateKey(err) {
		return domain.ConflictError{Resource: "payment", Msg: "id sudah dipakai", Err: err}
	}
	return err
}

// SetCharge stores the gateway's charge identifiers on the payment.
func (r PaymentRepository) SetCharge(ctx context.Context, id string, c ChargeInfo) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE payments
		SET gateway_id=?, gateway_txid=?, br_code=?, qr_code_image=?, expires_at=?
		WHERE id=?`,
		intdb.NullIfEmpty(c.GatewayID),
		intdb.NullIfEmpty(c.GatewayTxID),
		intdb.NullIfEmpty(c.BrCode),
		intdb.NullIfEmpty(c.QRCodeImage),
		c.ExpiresAt,
		id,
	)
	return err
}

// InsertLineItems writes one passenger_payments row per item.
func (r PaymentRepository) InsertLineItems(ctx context.Context, items []models.PassengerPayment) error {
	if len(items) == 0 {
		return nil
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	ph := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*3)
	for _, it := range items {
		ph = append(ph, "(?,?,?)")
		args = append(args, it.PaymentID, it.PassengerID, it.AmountCents)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO passenger_payments (payment_id, passenger_id, amount_cents) VALUES `+strings.Join(ph, ","), args...)
	return err
}

// ListLineItems returns the line items of one payment.
func (r PaymentRepository) ListLineItems(ctx context.Context, paymentID string) ([]models.PassengerPayment, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT payment_id, passenger_id, amount_cents FROM passenger_payments WHERE payment_id=? ORDER BY id ASC`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PassengerPayment{}
	for rows.Next() {
		var it models.PassengerPayment
		if err := rows.Scan(&it.PaymentID, &it.PassengerID, &it.AmountCents); err != nil {
			return out, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetByID loads a payment. A missing row yields domain.NotFoundError.
func (r PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	db, err := r.conn()
	if err != nil {
		return models.Payment{}, err
	}
	p, err := scanPayment(db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
		}
		return models.Payment{}, err
	}
	return p, nil
}

// MarkPaid transitions the payment to paid unless it already is. The
// status <> 'paid' predicate is the compare-and-swap that makes duplicate
// deliveries no-ops; it returns false when nothing changed.
func (r PaymentRepository) MarkPaid(ctx context.Context, id string, c Completion) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	var payload any
	if len(c.ProviderPayload) > 0 && json.Valid(c.ProviderPayload) {
		payload = string(c.ProviderPayload)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE payments
		SET status=?, paid_at=?, gateway_txid=COALESCE(?, gateway_txid), fee_cents=?, provider_payload=?
		WHERE id=? AND status <> ?`,
		string(domain.PaymentPaid),
		c.PaidAt,
		intdb.NullIfEmpty(c.GatewayTxID),
		c.FeeCents,
		payload,
		id,
		string(domain.PaymentPaid),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkExpired transitions to expired; a paid payment is never demoted.
func (r PaymentRepository) MarkExpired(ctx context.Context, id string, providerPayload json.RawMessage) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	var payload any
	if len(providerPayload) > 0 && json.Valid(providerPayload) {
		payload = string(providerPayload)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE payments
		SET status=?, provider_payload=COALESCE(?, provider_payload)
		WHERE id=? AND status <> ?`,
		string(domain.PaymentExpired),
		payload,
		id,
		string(domain.PaymentPaid),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TransitionPending moves a still-pending payment to status. Used by the stale
// sweep; anything already resolved is left alone.
func (r PaymentRepository) TransitionPending(ctx context.Context, id string, status domain.PaymentStatus) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `UPDATE payments SET status=? WHERE id=? AND status=?`,
		string(status), id, string(domain.PaymentPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByStatus returns payments in status, oldest first.
func (r PaymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]models.Payment, error) {
	return r.list(ctx, `WHERE status=? ORDER BY created_at ASC`, string(status))
}

// ListStalePending returns pending payments whose charge expired before now,
// or that never received a gateway id and were created before orphanBefore.
func (r PaymentRepository) ListStalePending(ctx context.Context, now, orphanBefore time.Time) ([]models.Payment, error) {
	return r.list(ctx, `
		WHERE status=?
		  AND ((expires_at IS NOT NULL AND expires_at < ?) OR (gateway_id IS NULL AND created_at < ?))
		ORDER BY created_at ASC`,
		string(domain.PaymentPending), now, orphanBefore)
}

// Latest returns the most recently created payment.
func (r PaymentRepository) Latest(ctx context.Context) (models.Payment, error) {
	out, err := r.list(ctx, `ORDER BY created_at DESC LIMIT 1`)
	if err != nil {
		return models.Payment{}, err
	}
	if len(out) == 0 {
		return models.Payment{}, domain.NotFoundError{Resource: "payment"}
	}
	return out[0], nil
}

func (r PaymentRepository) list(ctx context.Context, tail string, args ...any) ([]models.Payment, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
