package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func get(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequestIDAssigned(t *testing.T) {
	router := newRouter(RequestID())

	w := get(router, nil)
	requestID := w.Header().Get(RequestIDHeader)
	if !strings.HasPrefix(requestID, "req_") {
		t.Errorf("request id = %q, want req_ prefix", requestID)
	}
}

func TestRequestIDKeepsIncoming(t *testing.T) {
	router := newRouter(RequestID())

	w := get(router, map[string]string{RequestIDHeader: "req_upstream"})
	if got := w.Header().Get(RequestIDHeader); got != "req_upstream" {
		t.Errorf("request id = %q, want req_upstream", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	router := newRouter(RequireAdmin(string(hash)))

	if w := get(router, map[string]string{APIKeyHeader: "letmein"}); w.Code != http.StatusOK {
		t.Errorf("valid key = %d, want 200", w.Code)
	}
	if w := get(router, map[string]string{APIKeyHeader: "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("invalid key = %d, want 401", w.Code)
	}
	if w := get(router, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing key = %d, want 401", w.Code)
	}
}

func TestRequireAdminDisabled(t *testing.T) {
	router := newRouter(RequireAdmin(""))

	if w := get(router, map[string]string{APIKeyHeader: "anything"}); w.Code != http.StatusForbidden {
		t.Errorf("disabled admin = %d, want 403", w.Code)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	router := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	for i := 0; i < 2; i++ {
		if w := get(router, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i+1, w.Code)
		}
	}
	if w := get(router, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded = %d, want 429", w.Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	router := newRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	if w := get(router, nil); w.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", w.Code)
	}
	if w := get(router, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", w.Code)
	}
}
