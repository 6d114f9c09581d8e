package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisStore "crypto-checkout/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redisStore.NewRateLimitStore(client)
	rule := RateLimitRule{Limit: 2, Window: time.Minute}

	router := gin.New()
	router.GET("/users/:user_id", RateLimiter(store, "profile", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// First two requests pass, the third is throttled.
	assert.Equal(t, http.StatusOK, do("/users/alice").Code)
	w := do("/users/alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do("/users/alice")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Keyed per user: bob is unaffected by alice's burst.
	assert.Equal(t, http.StatusOK, do("/users/bob").Code)
}
