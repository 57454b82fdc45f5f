package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedRouter(rdb *redis.Client, perMinute int) *gin.Engine {
	r := gin.New()
	r.POST("/analyze/short", RateLimit(rdb, perMinute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newLimitedRouter(rdb, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyze/short", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	for _, r := range []*gin.Engine{newLimitedRouter(nil, 1), newLimitedRouter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)} {
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyze/short", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimitRedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	w := httptest.NewRecorder()
	newLimitedRouter(rdb, 1).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyze/short", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLoggerKeepsBody(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(), Metrics())
	r.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"name":"x"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"name":"x"}`, w.Body.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc")))
	long := bytes.Repeat([]byte("a"), maxLoggedBody+10)
	assert.Len(t, truncate(long), maxLoggedBody+len("...(truncated)"))
}

func TestRequestLogBodyRedactsAnswers(t *testing.T) {
	body := []byte(`{"name":"Анна","lang":"ru","answers":[{"questionId":1,"answer":"Лес"}]}`)

	got := requestLogBody("/analyze/short", body)
	assert.NotContains(t, got, "Анна")
	assert.NotContains(t, got, "Лес")
	assert.Contains(t, got, `"lang":"ru"`)
	assert.Contains(t, got, `"answers":"[redacted]"`)

	assert.Equal(t, `{"result_id":"abc"}`, requestLogBody("/analyze/full", []byte(`{"result_id":"abc"}`)))
	assert.Equal(t, "[unparsed body omitted]", requestLogBody("/analyze/short", []byte(`{"name":"Анна"`)))
	assert.Equal(t, string(body), requestLogBody("/health/db", body))
}
