package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_PerClient(t *testing.T) {
	limiters := NewClientLimiters(rate.Limit(1), 2, time.Minute)
	r := gin.New()
	r.Use(RateLimiter(limiters, ClientKey("X-Real-IP")))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	do := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Real-IP", ip)
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)
	assert.Equal(t, 2, limiters.Len())
}

func TestClientKey(t *testing.T) {
	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = "192.0.2.10:4711"
		if header != "" {
			c.Request.Header.Set("X-Forwarded-For", header)
		}
		return c
	}

	assert.Equal(t, "203.0.113.5", ClientKey("X-Forwarded-For")(newCtx("203.0.113.5, 10.0.0.1")))
	assert.Equal(t, "192.0.2.10", ClientKey("X-Forwarded-For")(newCtx("")))
	assert.Equal(t, "192.0.2.10", ClientKey("")(newCtx("")))
}

func TestCache_ServesRepeatedGets(t *testing.T) {
	calls := 0
	r := gin.New()
	r.GET("/check", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		if c.Query("position") == "bad" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"position": c.Query("position")})
	})

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/check?"+query, nil))
		return w
	}

	first := get("position=1,2")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(CacheStatusHeader))

	second := get("position=1,2")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(CacheStatusHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	get("position=bad")
	get("position=bad")
	assert.Equal(t, 3, calls)
}
