package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(seen *string, fromCtx *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		*seen = Value(c)
		*fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewareReusesCallerID(t *testing.T) {
	var seen, fromCtx string
	r := newRouter(&seen, &fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerKey, "trace-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", fromCtx)
	assert.Equal(t, "trace-123", rec.Header().Get(headerKey))
}

func TestMiddlewareReplacesUnusableID(t *testing.T) {
	for _, supplied := range []string{"", "has space", strings.Repeat("x", maxLength+1)} {
		var seen, fromCtx string
		r := newRouter(&seen, &fromCtx)

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if supplied != "" {
			req.Header.Set(headerKey, supplied)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		_, err := uuid.Parse(seen)
		require.NoError(t, err, supplied)
		assert.Equal(t, seen, fromCtx)
		assert.Equal(t, seen, rec.Header().Get(headerKey))
	}
}
