package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripbook/internal/domain"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	l := NewRateLimiter(2)
	r := gin.New()
	r.GET("/x", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	l := NewRateLimiter(1)
	start := time.Now()
	l.get("a", start)
	l.get("b", start.Add(11*time.Minute))
	if _, ok := l.limiters["a"]; ok {
		t.Fatalf("idle limiter kept")
	}
}

func TestRateLimiterSweepsAtMostOncePerInterval(t *testing.T) {
	l := NewRateLimiter(1)
	start := time.Now()
	l.get("a", start)
	l.lastSweep = start.Add(9 * time.Minute)
	// a is idle but the last sweep is too recent
	l.get("b", start.Add(11*time.Minute))
	if _, ok := l.limiters["a"]; !ok {
		t.Fatalf("swept before the interval elapsed")
	}
	l.get("c", start.Add(14*time.Minute))
	if _, ok := l.limiters["a"]; ok {
		t.Fatalf("idle limiter kept after the interval")
	}
	if _, ok := l.limiters["b"]; !ok {
		t.Fatalf("active limiter evicted")
	}
}

type staticParser struct {
	rc  domain.RequestContext
	err error
}

func (p staticParser) ParseToken(string) (domain.RequestContext, error) { return p.rc, p.err }

func TestBearerAuthAndRoles(t *testing.T) {
	cases := []struct {
		name   string
		parser staticParser
		header string
		want   int
	}{
		{"missing header", staticParser{}, "", http.StatusUnauthorized},
		{"bad token", staticParser{err: domain.UnauthorizedError{Msg: "token tidak valid"}}, "Bearer x", http.StatusUnauthorized},
		{"wrong role", staticParser{rc: domain.RequestContext{Subject: "u", Role: "viewer"}}, "Bearer x", http.StatusForbidden},
		{"admin", staticParser{rc: domain.RequestContext{Subject: "u", Role: "admin"}}, "bearer x", http.StatusOK},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/admin", BearerAuth(tc.parser), RequireRoles("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	var seen string
	r.GET("/x", RequestID(), func(c *gin.Context) { seen = GetRequestID(c); c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen == "" || w.Header().Get("X-Request-ID") != seen {
		t.Fatalf("generated id not echoed: %q vs %q", seen, w.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "abc-123" {
		t.Fatalf("caller id not kept: %q", seen)
	}
}
