package apperr

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// correlationIDHeader matches internal/rpcmesh/jwtauth's propagated header;
// reused here as the client-facing trace_id so a client can correlate an
// error response with the same id the RPC mesh logs server-side.
const correlationIDHeader = "x-correlation-id"

// Envelope is the client-facing error body documented in spec.md §6.2:
// {error, message, status, error_type, code, details?, trace_id?, timestamp}.
type Envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusFor maps a Kind to the HTTP status the transport layer returns.
func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout, KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorType maps a Kind onto §6.2's closed error_type set, which is coarser
// than Kind: timeout folds into service_unavailable and internal is spelled
// "server".
func errorType(kind Kind) string {
	switch kind {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "authentication"
	case KindForbidden:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout, KindUnavailable:
		return "service_unavailable"
	default:
		return "server"
	}
}

// Abort records err on the gin context and aborts the handler chain;
// GinMiddleware writes the response once every handler has returned.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// GinMiddleware translates the last error recorded via Abort/c.Error into
// the §6.2 envelope, deferring the write until after c.Next() returns,
// matching internal/metrics.HTTP.GinMiddleware's shape.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		kind := KindOf(err)

		code := "INTERNAL_ERROR"
		message := "an internal error occurred"
		if appErr, ok := err.(*Error); ok {
			code = appErr.Code
			message = appErr.Message
		}

		traceID := c.GetHeader(correlationIDHeader)

		status := statusFor(kind)
		c.JSON(status, Envelope{
			Error:     code,
			Message:   message,
			Status:    status,
			ErrorType: errorType(kind),
			Code:      code,
			TraceID:   traceID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
