package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Fields  map[string]any `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// WithField returns a copy of the error carrying an extra response field.
func (e *Error) WithField(key string, value any) *Error {
	fields := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	return &Error{Code: e.Code, Message: e.Message, Err: e.Err, Fields: fields}
}

// Wrap returns a copy of the error wrapping err.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err, Fields: e.Fields}
}

// Body builds the JSON response body. The wrapped error is only included
// as "details" when exposeDetails is set.
func (e *Error) Body(exposeDetails bool) gin.H {
	body := gin.H{"error": e.Message}
	for k, v := range e.Fields {
		body[k] = v
	}
	if exposeDetails && e.Err != nil {
		body["details"] = e.Err.Error()
	}
	return body
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// As reports whether err is, or wraps, an *Error. Anything else becomes an
// internal server error wrapping err.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.Wrap(err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrMethodNotAllowed   = New(http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	ErrTooManyRequests    = New(http.StatusTooManyRequests, "Too many payment attempts, please try again later.", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Validation error types
var (
	ErrInvalidBody     = New(http.StatusBadRequest, "Invalid request body", nil)
	ErrMissingFields   = New(http.StatusBadRequest, "Missing required fields", nil)
	ErrInvalidAmount   = New(http.StatusBadRequest, "Amount must be a positive integer in minor currency units", nil)
	ErrInvalidCurrency = New(http.StatusBadRequest, "Unsupported currency", nil)
	ErrInvalidEmail    = New(http.StatusBadRequest, "A valid email address is required", nil)
	ErrBodyTooLarge    = New(http.StatusRequestEntityTooLarge, "Request body too large", nil)
)

// Payment error types
var (
	ErrCheckoutFailed      = New(http.StatusInternalServerError, "Failed to create checkout session", nil)
	ErrPaymentIntentFailed = New(http.StatusInternalServerError, "Failed to create payment intent", nil)
	ErrWebhookSecret       = New(http.StatusBadRequest, "Webhook secret not configured", nil)
	ErrWebhookSignature    = New(http.StatusBadRequest, "Invalid webhook signature", nil)
)

// ErrorMiddleware renders the last error pushed with c.Error as JSON.
// exposeDetails controls whether wrapped error messages reach the client.
func ErrorMiddleware(exposeDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := As(c.Errors.Last().Err)
		c.JSON(appErr.Code, appErr.Body(exposeDetails))
		c.Abort()
	}
}
