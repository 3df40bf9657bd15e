package errors

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Machine-readable codes carried in the "code" field
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the body of every error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// fallbacks holds the message sent when a caller passes an empty one
var fallbacks = map[string]string{
	ErrCodeUnauthorized:       "Unauthorized",
	ErrCodeForbidden:          "Access denied",
	ErrCodeNotFound:           "Resource not found",
	ErrCodeInvalidInput:       "Invalid request",
	ErrCodeConflict:           "Resource conflict",
	ErrCodeTooManyRequests:    "Too many requests. Please try again later.",
	ErrCodeInternalError:      "Internal server error",
	ErrCodeServiceUnavailable: "Service temporarily unavailable",
}

// abort writes the error body and stops the handler chain
func abort(c *gin.Context, status int, code, message string, details interface{}) {
	if message == "" {
		message = fallbacks[code]
	}
	c.AbortWithStatusJSON(status, &APIError{Code: code, Message: message, Details: details})
}

func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

// InvalidCredentials is the one 401 used for every failed login, whatever the cause
func InvalidCredentials(c *gin.Context) {
	abort(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials", nil)
}

func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, ErrCodeForbidden, message, nil)
}

func NotFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, ErrCodeInvalidInput, message, nil)
}

func Conflict(c *gin.Context, message string) {
	abort(c, http.StatusConflict, ErrCodeConflict, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	abort(c, http.StatusTooManyRequests, ErrCodeTooManyRequests, message, nil)
}

// InternalError answers 500. Callers pass a user-facing message, never err.Error().
func InternalError(c *gin.Context, message string) {
	abort(c, http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	abort(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, nil)
}

var (
	translatorOnce sync.Once
	translator     ut.Translator
)

// fieldTranslator registers English messages on gin's validator engine once.
func fieldTranslator() ut.Translator {
	translatorOnce.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("en")

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = en_translations.RegisterDefaultTranslations(v, translator)
		}
	})
	return translator
}

// ValidationFailed sends a 400 for a binding error. Validator failures become
// one translated message per field; anything else (malformed JSON, wrong
// types) falls back to message.
func ValidationFailed(c *gin.Context, err error, message string) {
	if message == "" {
		message = "Invalid request body"
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		abort(c, http.StatusBadRequest, ErrCodeInvalidInput, message, nil)
		return
	}

	trans := fieldTranslator()
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[lowerFirst(fe.Field())] = fe.Translate(trans)
	}
	abort(c, http.StatusBadRequest, ErrCodeInvalidInput, message, details)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
