package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRateLimiter_ReusesLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(10)
	uid := uuid.New()

	if rl.getLimiter(uid) != rl.getLimiter(uid) {
		t.Error("Expected the same limiter for repeated calls with one user")
	}
	if len(rl.limiters) != 1 {
		t.Errorf("Expected 1 tracked limiter, got %d", len(rl.limiters))
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10)
	idle := uuid.New()
	active := uuid.New()

	rl.getLimiter(idle)
	rl.limiters[idle].lastSeen = time.Now().Add(-limiterIdleTimeout - time.Minute)
	rl.getLimiter(active)

	rl.evictStale(time.Now().Add(-limiterIdleTimeout))

	if _, ok := rl.limiters[idle]; ok {
		t.Error("Expected idle client's limiter to be evicted")
	}
	if _, ok := rl.limiters[active]; !ok {
		t.Error("Expected active client's limiter to survive eviction")
	}
}

func TestRateLimitMiddleware_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1) // burst of 2
	uid := uuid.New()

	router := gin.New()
	router.GET("/ping", func(c *gin.Context) {
		c.Set("user_id", uid)
	}, RateLimitMiddleware(rl), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("Expected the burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once the burst is spent, got %v", codes)
	}
}

func TestRateLimitMiddleware_SkipsAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1)

	router := gin.New()
	router.GET("/ping", RateLimitMiddleware(rl), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Request without identity should bypass the limiter, got %d", w.Code)
		}
	}
}
