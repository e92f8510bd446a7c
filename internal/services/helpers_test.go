package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"tripbook/internal/cache"

	"github.com/DATA-DOG/go-sqlmock"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var paymentCols = []string{
	"id", "trip_id", "status", "passenger_ids", "total_amount_cents",
	"payer_name", "payer_email", "payer_id", "gateway_id", "gateway_txid",
	"br_code", "qr_code_image", "expires_at", "paid_at", "fee_cents", "created_at",
}

var passengerCols = []string{
	"id", "trip_id", "source_id", "name", "document", "phone", "instrument",
	"congregation", "marital_status", "age", "seat_code", "payment_status",
	"amount_paid_cents", "paid_by",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows(paymentCols)
}

func addPayment(rows *sqlmock.Rows, id, tripID, status, idsJSON string, total int64, gatewayID string, expiresAt any) *sqlmock.Rows {
	return rows.AddRow(id, tripID, status, []byte(idsJSON), total,
		"Ana", "ana@example.com", "", gatewayID, "", "", "",
		expiresAt, nil, int64(0), fixedNow.Add(-2*time.Hour))
}

func passengerRow(id, tripID, sourceID, name, seat, status string, paidCents int64) *sqlmock.Rows {
	return sqlmock.NewRows(passengerCols).
		AddRow(id, tripID, sourceID, name, "", "", "", "", "", 0, seat, status, paidCents, "")
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type fakeStatusStore struct {
	mu          sync.Mutex
	entries     map[string]cache.PaymentStatus
	invalidated []string
}

func (f *fakeStatusStore) Get(_ context.Context, id string) (cache.PaymentStatus, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.entries[id]
	return st, ok, nil
}

func (f *fakeStatusStore) Set(_ context.Context, st cache.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = map[string]cache.PaymentStatus{}
	}
	f.entries[st.ID] = st
	return nil
}

func (f *fakeStatusStore) Invalidate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	f.invalidated = append(f.invalidated, id)
	return nil
}

type fakeSyncQueue struct {
	enqueued []string
	err      error
}

func (f *fakeSyncQueue) EnqueuePassengerSync(_ context.Context, paymentID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, paymentID)
	return nil
}

var errBoom = errors.New("boom")
