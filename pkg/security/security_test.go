package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	now := time.Now()

	assert.True(t, l.allow("1.1.1.1", now))
	assert.True(t, l.allow("1.1.1.1", now))
	assert.False(t, l.allow("1.1.1.1", now))
	assert.True(t, l.allow("2.2.2.2", now))

	// 30 秒后补充一个令牌
	assert.True(t, l.allow("1.1.1.1", now.Add(31*time.Second)))
}

func TestRateLimiterUpdate(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	now := time.Now()
	assert.True(t, l.allow("ip", now))
	assert.False(t, l.allow("ip", now))

	l.Update(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("ip", now))
	}

	l.Update(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("ip", now))
	}
	assert.False(t, l.allow("ip", now))
}

func TestMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://exam.example.com"}), Secure(), NewRateLimiter(1, time.Minute).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://exam.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://exam.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
