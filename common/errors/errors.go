package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind is the stable, machine-checkable category of an application error.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindUnauthorized        Kind = "unauthorized"
	KindNotFoundOrForbidden Kind = "not_found_or_forbidden"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal_error"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// Is matches on kind and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func NotFoundOrForbidden(message string) *Error {
	return New(http.StatusNotFound, KindNotFoundOrForbidden, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, KindConflict, message, nil)
}

func UpstreamUnavailable(message string) *Error {
	return New(http.StatusBadRequest, KindUpstreamUnavailable, message, nil)
}

// Internal wraps a persistence or infrastructure failure. The cause is kept for
// logging only and never rendered to clients.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, message, err)
}

// Domain errors shared by the order and payment engines.
var (
	ErrOrderNotFound             = NotFoundOrForbidden("Order not found")
	ErrOrderItemNotFound         = NotFoundOrForbidden("Order item not found")
	ErrPaymentNotFound           = NotFoundOrForbidden("Payment not found")
	ErrPaymentAlreadyExists      = Conflict("Payment already exists for this order")
	ErrNumberGenerationExhausted = Conflict("Could not allocate a unique order number")
	ErrForbidden                 = Forbidden("Forbidden")
	ErrUnauthenticated           = Unauthorized("Unauthorized")
)

// FromError converts any error into an *Error. Unknown errors become internal
// errors so their text is never shown to callers.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Respond writes the error as the standard JSON envelope.
func Respond(c *gin.Context, err error) {
	appErr := FromError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message, "kind": appErr.Kind})
}

// Error middleware for Gin
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
