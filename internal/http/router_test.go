package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	intconfig "tripbook/internal/config"
	h "tripbook/internal/http/handlers"
	"tripbook/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T, secrets []string) (*gin.Engine, sqlmock.Sqlmock, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	auth := services.AuthService{Secret: []byte("k"), AdminEmail: "admin@example.com", AdminPasswordHash: string(hash), Now: time.Now}
	h.SetDeps(h.Deps{DB: db, Verifier: services.NewSignatureVerifier(secrets), Auth: auth})
	return NewRouter(intconfig.Env{MaxPaymentsPerMin: 100}, auth), mock, auth
}

func do(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookSignatureMismatchIs401(t *testing.T) {
	r, mock, _ := newTestRouter(t, []string{"s1"})
	w := do(r, http.MethodPost, "/api/webhooks/openpix",
		`{"event":"OPENPIX:CHARGE_COMPLETED","charge":{"correlationID":"pay-1"}}`,
		map[string]string{"x-openpix-signature": "bad"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWebhookSignatureAcceptedFromEitherHeader(t *testing.T) {
	r, mock, _ := newTestRouter(t, []string{"s1"})
	body := `{"event":"OPENPIX:CHARGE_CREATED","charge":{"correlationID":"pay-1"}}`
	sig := services.SigningKey{Secret: []byte("s1"), Scheme: services.SchemeSHA256Base64}.Sign([]byte(body))

	for _, header := range []string{"x-webhook-signature", "x-openpix-signature"} {
		w := do(r, http.MethodPost, "/api/webhooks/openpix", body, map[string]string{header: sig})
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ignored"`) {
			t.Fatalf("%s: status = %d body=%s", header, w.Code, w.Body.String())
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWebhookConnectivityTestIs200(t *testing.T) {
	r, _, _ := newTestRouter(t, []string{"s1"})
	w := do(r, http.MethodPost, "/api/webhooks/openpix", `{"evento":"teste_webhook"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWebhookUnknownPaymentIs404(t *testing.T) {
	r, mock, _ := newTestRouter(t, nil)
	mock.ExpectQuery("FROM payments WHERE id=").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := do(r, http.MethodPost, "/api/webhooks/openpix", `{"event":"CHARGE_COMPLETED","charge":{"correlationID":"nope"}}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreatePaymentRequiresTripAndPassengers(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	w := do(r, http.MethodPost, "/api/payments", `{"passengerIds":[]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r, mock, auth := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/api/admin/reconcile/sync", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	login, err := auth.Login("admin@example.com", "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mock.ExpectQuery("FROM payments WHERE status=").WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	w = do(r, http.MethodPost, "/api/admin/reconcile/sync", "", map[string]string{"Authorization": "Bearer " + login.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginEndpoint(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	w := do(r, http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"salah"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"rahasia"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"token"`) {
		t.Fatalf("login: status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookOversizedBodyIs413(t *testing.T) {
	r, mock, _ := newTestRouter(t, []string{"s1"})
	body := `{"event":"OPENPIX:CHARGE_COMPLETED","pad":"` + strings.Repeat("x", 1<<20) + `"}`
	w := do(r, http.MethodPost, "/api/webhooks/openpix", body,
		map[string]string{"x-openpix-signature": "bad"})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReceiptRequiresAdminToken(t *testing.T) {
	r, mock, auth := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/api/payments/pay-1/receipt", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	login, err := auth.Login("admin@example.com", "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mock.ExpectQuery("FROM payments WHERE id=").WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	w = do(r, http.MethodGet, "/api/payments/pay-1/receipt", "", map[string]string{"Authorization": "Bearer " + login.Token})
	if w.Code != http.StatusNotFound {
		t.Fatalf("with token: status = %d body=%s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
