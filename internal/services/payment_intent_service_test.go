package services

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tripbook/internal/domain"
	"tripbook/internal/domain/models"
	"tripbook/internal/gateway"
	"tripbook/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

type fakeGateway struct {
	requests []gateway.ChargeRequest
	charge   gateway.Charge
	err      error
}

func (f *fakeGateway) CreateCharge(_ context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return gateway.Charge{}, f.err
	}
	return f.charge, nil
}

var tripCols = []string{"id", "name", "destination", "price", "goal", "created_at"}

func newIntentService(t *testing.T, gw ChargeGateway) (PaymentIntentService, sqlmock.Sqlmock, *fakeStatusStore) {
	t.Helper()
	db, mock := newMock(t)
	store := &fakeStatusStore{}
	return PaymentIntentService{
		Trips:     repositories.TripRepository{DB: db},
		Payments:  repositories.PaymentRepository{DB: db},
		Resolver:  PassengerResolver{Passengers: repositories.PassengerRepository{DB: db}, Logger: zap.NewNop()},
		Gateway:   gw,
		Cache:     store,
		Logger:    zap.NewNop(),
		RequestID: "test",
		Now:       fixedClock,
		NewID:     func() string { return "pay-1" },
	}, mock, store
}

func expectTrip(mock sqlmock.Sqlmock, price string) {
	mock.ExpectQuery("FROM trips").WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows(tripCols).AddRow("trip-1", "Retiro 2026", "Campinas", price, "0.00", fixedNow))
}

func TestCreatePaymentEndToEndAmounts(t *testing.T) {
	gw := &fakeGateway{charge: gateway.Charge{
		Identifier:    "gw-1",
		TransactionID: "tx-1",
		BrCode:        "00020101021226",
		QRCodeImage:   "https://api.openpix.com.br/openpix/charge/brcode/image/gw-1.png",
		ExpiresDate:   "2026-03-14T13:00:00.000Z",
	}}
	svc, mock, _ := newIntentService(t, gw)
	mock.MatchExpectationsInOrder(true)

	expectTrip(mock, "50.00")
	// m1 is a master record and gets cloned, p2 and p3 already belong to the trip
	mock.ExpectQuery("FROM passengers WHERE id=").WithArgs("m1").
		WillReturnRows(passengerRow("m1", "", "", "Joana", "", "Pending", 0))
	mock.ExpectExec("INSERT INTO passengers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM passengers WHERE source_id").WithArgs("m1", "trip-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectQuery("FROM passengers WHERE id=").WithArgs("p2").
		WillReturnRows(passengerRow("p2", "trip-1", "m2", "Paulo", "", "Pending", 0))
	mock.ExpectQuery("FROM passengers WHERE id=").WithArgs("p3").
		WillReturnRows(passengerRow("p3", "trip-1", "", "Marta", "", "Pending", 0))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs("pay-1", "trip-1", "pending", `["c1","p2","p3"]`, int64(15000), "Ana", "ana@example.com", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments").
		WithArgs("gw-1", "tx-1", "00020101021226", sqlmock.AnyArg(), sqlmock.AnyArg(), "pay-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passenger_payments").
		WithArgs("pay-1", "c1", int64(5000), "pay-1", "p2", int64(5000), "pay-1", "p3", int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	intent, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		TripID:       "trip-1",
		PassengerIDs: []string{"m1", "p2", "p3", "p2"},
		PayerName:    "Ana",
		PayerEmail:   "ana@example.com",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if intent.ID != "pay-1" || intent.DatabaseID != "pay-1" || intent.BrCode != "00020101021226" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.TotalAmountCents != 15000 {
		t.Fatalf("total = %d, want 15000", intent.TotalAmountCents)
	}
	if intent.ExpiresAt == nil || !intent.ExpiresAt.Equal(time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("expiry = %v", intent.ExpiresAt)
	}

	if len(gw.requests) != 1 {
		t.Fatalf("gateway called %d times", len(gw.requests))
	}
	req := gw.requests[0]
	if req.CorrelationID != "pay-1" || req.Value != 15000 || req.ExpiresIn != gateway.ChargeExpiresIn {
		t.Fatalf("unexpected charge request: %+v", req)
	}
	if req.Customer == nil || req.Customer.Email != "ana@example.com" {
		t.Fatalf("customer missing: %+v", req.Customer)
	}
	if req.Comment != "Retiro 2026 - 3 passageiro(s)" {
		t.Fatalf("comment = %q", req.Comment)
	}
	expectMet(t, mock)
}

func TestCreatePaymentRoundsTotalOnce(t *testing.T) {
	gw := &fakeGateway{charge: gateway.Charge{Identifier: "gw-1"}}
	svc, mock, _ := newIntentService(t, gw)

	expectTrip(mock, "33.335")
	for _, id := range []string{"p1", "p2", "p3"} {
		mock.ExpectQuery("FROM passengers WHERE id=").WithArgs(id).
			WillReturnRows(passengerRow(id, "trip-1", "", "X", "", "Pending", 0))
	}
	// 3 x 33.335 = 100.005, rounded once to 100.01
	mock.ExpectExec("INSERT INTO payments").
		WithArgs("pay-1", "trip-1", "pending", `["p1","p2","p3"]`, int64(10001), nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passenger_payments").WillReturnResult(sqlmock.NewResult(0, 3))

	intent, err := svc.CreatePayment(context.Background(), CreatePaymentInput{TripID: "trip-1", PassengerIDs: []string{"p1", "p2", "p3"}})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if gw.requests[0].Value != 10001 || intent.TotalAmountCents != 10001 {
		t.Fatalf("total not rounded once: %d", gw.requests[0].Value)
	}
	// no charge expiry from the gateway: one hour after creation
	if intent.ExpiresAt == nil || !intent.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("default expiry = %v", intent.ExpiresAt)
	}
	expectMet(t, mock)
}

func TestCreatePaymentGatewayRejectionLeavesPending(t *testing.T) {
	gw := &fakeGateway{err: domain.GatewayError{StatusCode: 400, Msg: "value must be positive"}}
	svc, mock, _ := newIntentService(t, gw)

	expectTrip(mock, "50.00")
	mock.ExpectQuery("FROM passengers WHERE id=").WithArgs("p1").
		WillReturnRows(passengerRow("p1", "trip-1", "", "X", "", "Pending", 0))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{TripID: "trip-1", PassengerIDs: []string{"p1"}})
	ge, ok := domain.AsGatewayError(err)
	if !ok || !ge.Rejected() {
		t.Fatalf("expected rejected gateway error, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreatePaymentUnknownTrip(t *testing.T) {
	svc, mock, _ := newIntentService(t, &fakeGateway{})
	mock.ExpectQuery("FROM trips").WithArgs("trip-1").WillReturnRows(sqlmock.NewRows(tripCols))

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{TripID: "trip-1", PassengerIDs: []string{"p1"}})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreatePaymentNoResolvablePassengers(t *testing.T) {
	gw := &fakeGateway{}
	svc, mock, _ := newIntentService(t, gw)

	expectTrip(mock, "50.00")
	mock.ExpectQuery("FROM passengers WHERE id=").WithArgs("ghost").WillReturnRows(sqlmock.NewRows(passengerCols))

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{TripID: "trip-1", PassengerIDs: []string{"ghost"}})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gw.requests) != 0 {
		t.Fatalf("gateway must not be called")
	}
	expectMet(t, mock)
}

func TestCreatePaymentValidatesInput(t *testing.T) {
	svc, mock, _ := newIntentService(t, &fakeGateway{})
	if _, err := svc.CreatePayment(context.Background(), CreatePaymentInput{PassengerIDs: []string{"p1"}}); !domain.IsValidation(err) {
		t.Fatalf("missing trip: %v", err)
	}
	if _, err := svc.CreatePayment(context.Background(), CreatePaymentInput{TripID: "trip-1", PassengerIDs: []string{" ", ""}}); !domain.IsValidation(err) {
		t.Fatalf("missing passengers: %v", err)
	}
	expectMet(t, mock)
}

func TestGetStatusCachesOnlyPaid(t *testing.T) {
	svc, mock, store := newIntentService(t, &fakeGateway{})
	paidRow := paymentRows().AddRow("pay-1", "trip-1", "paid", []byte(`["p1"]`), int64(5000),
		"Ana", "ana@example.com", "", "gw-1", "tx-1", "", "", nil, fixedNow, int64(0), fixedNow.Add(-2*time.Hour))

	// pending is read from the store on every poll
	mock.ExpectQuery("FROM payments WHERE id=").WithArgs("pay-1").
		WillReturnRows(addPayment(paymentRows(), "pay-1", "trip-1", "pending", `["p1"]`, 5000, "gw-1", nil))
	mock.ExpectQuery("FROM payments WHERE id=").WithArgs("pay-1").
		WillReturnRows(paidRow)

	st, err := svc.GetStatus(context.Background(), "pay-1")
	if err != nil || st.Status != "pending" {
		t.Fatalf("status=%+v err=%v", st, err)
	}
	if _, ok := store.entries["pay-1"]; ok {
		t.Fatalf("pending status must not be cached")
	}
	st, err = svc.GetStatus(context.Background(), "pay-1")
	if err != nil || st.Status != "paid" || st.PaidAt == nil {
		t.Fatalf("paid status=%+v err=%v", st, err)
	}
	// third read is served from the cache
	st, err = svc.GetStatus(context.Background(), "pay-1")
	if err != nil || st.Status != "paid" {
		t.Fatalf("cached status=%+v err=%v", st, err)
	}
	expectMet(t, mock)
}

func TestChargeCommentTruncatesByRune(t *testing.T) {
	trip := models.Trip{Name: strings.Repeat("São Paulo ", 20)}
	got := chargeComment(trip, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("comment is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxCommentRunes {
		t.Fatalf("comment has %d runes", n)
	}
}
