package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tripbook/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	TokenTTL  = 24 * time.Hour
)

// AuthService signs in the single configured admin and checks bearer tokens.
type AuthService struct {
	Secret            []byte
	AdminEmail        string
	AdminPasswordHash string
	Now               func() time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
}

func (s AuthService) Login(email, password string) (LoginResult, error) {
	if len(s.Secret) == 0 || s.AdminEmail == "" || s.AdminPasswordHash == "" {
		return LoginResult{}, domain.UnauthorizedError{Msg: "login admin tidak dikonfigurasi"}
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.AdminEmail) {
		return LoginResult{}, domain.UnauthorizedError{Msg: "email atau password salah"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.AdminPasswordHash), []byte(password)); err != nil {
		return LoginResult{}, domain.UnauthorizedError{Msg: "email atau password salah", Err: err}
	}

	exp := nowOr(s.Now).Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  s.AdminEmail,
		"role": RoleAdmin,
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return LoginResult{}, domain.InternalError{Msg: "gagal membuat token", Err: err}
	}
	return LoginResult{Token: signed, ExpiresAt: exp, Role: RoleAdmin}, nil
}

// ParseToken validates an HS256 token and returns its subject and role.
func (s AuthService) ParseToken(raw string) (domain.RequestContext, error) {
	if len(s.Secret) == 0 {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "token tidak valid"}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(s.Now))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.RequestContext{}, domain.UnauthorizedError{Msg: "token kedaluwarsa", Err: err}
		}
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "token tidak valid", Err: err}
	}

	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	if role == "" {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "token tidak valid", Err: fmt.Errorf("missing role")}
	}
	return domain.RequestContext{Subject: sub, Role: role}, nil
}
