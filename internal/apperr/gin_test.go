package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRecorder(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, router := gin.CreateTestContext(w)
	router.Use(GinMiddleware())
	router.GET("/x", handler)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	router.HandleContext(c)
	return w
}

func TestGinMiddleware_TranslatesAppError(t *testing.T) {
	w := newRecorder(func(c *gin.Context) {
		Abort(c, NotFound("POST_NOT_FOUND", "post not found"))
	})

	require.Equal(t, http.StatusNotFound, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "POST_NOT_FOUND", body.Code)
	assert.Equal(t, "not_found", body.ErrorType)
	assert.Equal(t, "post not found", body.Message)
	assert.NotEmpty(t, body.Timestamp)
}

func TestGinMiddleware_UnclassifiedErrorBecomesServer(t *testing.T) {
	w := newRecorder(func(c *gin.Context) {
		Abort(c, errors.New("boom"))
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "server", body.ErrorType)
}

func TestGinMiddleware_TimeoutFoldsIntoServiceUnavailable(t *testing.T) {
	w := newRecorder(func(c *gin.Context) {
		Abort(c, New(KindTimeout, "UPSTREAM_TIMEOUT", "upstream timed out"))
	})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "service_unavailable", body.ErrorType)
}

func TestGinMiddleware_NoErrorLeavesResponseWritten(t *testing.T) {
	w := newRecorder(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGinMiddleware_PropagatesTraceIDHeader(t *testing.T) {
	w := httptest.NewRecorder()
	c, router := gin.CreateTestContext(w)
	router.Use(GinMiddleware())
	router.GET("/x", func(c *gin.Context) {
		Abort(c, Validation("BAD_INPUT", "bad input"))
	})
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request.Header.Set("x-correlation-id", "trace-123")
	router.HandleContext(c)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "trace-123", body.TraceID)
}
