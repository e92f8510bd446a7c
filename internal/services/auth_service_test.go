package services

import (
	"testing"
	"time"

	"tripbook/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func newAuth(t *testing.T) AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return AuthService{
		Secret:            []byte("test-secret"),
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: string(hash),
		Now:               time.Now,
	}
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc := newAuth(t)
	res, err := svc.Login("Admin@Example.com ", "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	rc, err := svc.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rc.Role != RoleAdmin || rc.Subject != "admin@example.com" {
		t.Fatalf("unexpected claims: %+v", rc)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuth(t)
	if _, err := svc.Login("admin@example.com", "salah"); !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login("other@example.com", "rahasia"); !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newAuth(t)
	svc.Now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	res, err := svc.Login("admin@example.com", "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.Now = time.Now
	if _, err := svc.ParseToken(res.Token); !domain.IsUnauthorized(err) {
		t.Fatalf("expired token accepted: %v", err)
	}

	other := newAuth(t)
	other.Secret = []byte("another-secret")
	fresh, err := other.Login("admin@example.com", "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ParseToken(fresh.Token); !domain.IsUnauthorized(err) {
		t.Fatalf("token signed with another secret accepted: %v", err)
	}
}
