package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lotuseval/placement-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 0.001, 2)
	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	if !rl.Allow("10.0.0.2") {
		t.Error("a different IP must have its own bucket")
	}
}

type stubValidator struct {
	claims *service.Claims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	s.got = tokenStr
	return s.claims, s.err
}

func TestRequireAdminJWT(t *testing.T) {
	admin := &service.Claims{TokenType: service.TokenTypeAdmin}
	admin.Subject = "admin"

	tests := []struct {
		name     string
		header   string
		query    string
		v        *stubValidator
		wantCode int
		wantBody string
	}{
		{"missing", "", "", &stubValidator{}, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"expired", "Bearer abc", "", &stubValidator{err: fmt.Errorf("parse token: %w", jwt.ErrTokenExpired)}, http.StatusUnauthorized, "AUTH_EXPIRED"},
		{"invalid", "Bearer abc", "", &stubValidator{err: errors.New("bad signature")}, http.StatusUnauthorized, "AUTH_INVALID"},
		{"wrong audience", "Bearer abc", "", &stubValidator{claims: &service.Claims{TokenType: "candidate"}}, http.StatusForbidden, "ADMIN_ACCESS_ONLY"},
		{"header", "Bearer abc", "", &stubValidator{claims: admin}, http.StatusOK, "admin"},
		{"query fallback", "", "abc", &stubValidator{claims: admin}, http.StatusOK, "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", RequireAdminJWT(tt.v), func(c *gin.Context) {
				c.String(http.StatusOK, Actor(c))
			})

			url := "/admin"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode || !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("got %d %s, want %d containing %q", w.Code, w.Body.String(), tt.wantCode, tt.wantBody)
			}
			if tt.header != "" || tt.query != "" {
				if tt.v.got != "abc" {
					t.Errorf("validator received %q", tt.v.got)
				}
			}
		})
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("placement ", 500)

	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 4, MinLength: 256}))
	r.GET("/text", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/xlsx", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte(large))
	})

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/text")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br encoding, headers %v", w.Header())
	}
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil || string(raw) != large {
		t.Errorf("decompressed body mismatch (err %v, %d bytes)", err, len(raw))
	}

	w = get("/small")
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body should pass through, got %q", w.Body.String())
	}

	w = get("/xlsx")
	if w.Header().Get("Content-Encoding") != "" || w.Body.Len() != len(large) {
		t.Errorf("xlsx should pass through uncompressed, got %d bytes", w.Body.Len())
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, 1)
	rl.Allow("10.0.0.9")
	rl.mu.Lock()
	rl.visitors["10.0.0.9"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("stale visitor not evicted")
	}
}
