package errors

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestHelpers_StatusAndCode(t *testing.T) {
	cases := []struct {
		name   string
		call   func(*gin.Context)
		status int
		code   string
		msg    string
	}{
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized"},
		{"credentials", InvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "Post is locked") }, http.StatusForbidden, ErrCodeForbidden, "Post is locked"},
		{"not found", func(c *gin.Context) { NotFound(c, "Post not found") }, http.StatusNotFound, ErrCodeNotFound, "Post not found"},
		{"conflict", func(c *gin.Context) { Conflict(c, "") }, http.StatusConflict, ErrCodeConflict, "Resource conflict"},
		{"throttled", func(c *gin.Context) { TooManyRequests(c, "") }, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Too many requests. Please try again later."},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, "") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext("")
			tc.call(c)

			assert.Equal(t, tc.status, w.Code)
			assert.True(t, c.IsAborted())

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.msg, body.Message)
		})
	}
}

func TestValidationFailed_TranslatesFields(t *testing.T) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Value    int    `json:"value" binding:"oneof=1 -1"`
	}

	c, w := newTestContext(`{"value": 3}`)
	var req request
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	ValidationFailed(c, err, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Code    string            `json:"code"`
		Message string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid request body", body.Message)
	assert.Contains(t, body.Details, "username")
	assert.Contains(t, body.Details["username"], "required")
	assert.Contains(t, body.Details, "value")
}

func TestValidationFailed_MalformedJSON(t *testing.T) {
	c, w := newTestContext(`{not json`)
	var req map[string]interface{}
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	ValidationFailed(c, err, "Bad payload")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Bad payload", body.Message)
	assert.Nil(t, body.Details)
}
