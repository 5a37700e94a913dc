package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/infra/obs"
)

// respondError maps the fault taxonomy to HTTP status codes. Plain errors
// fall through as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var f *fault.Fault
	if !errors.As(err, &f) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody(c, fault.Internal, "internal error")})
		return
	}
	c.JSON(statusFor(f.Kind), gin.H{"error": errorBody(c, f.Kind, f.Reason)})
}

func errorBody(c *gin.Context, kind fault.Kind, message string) gin.H {
	body := gin.H{"code": string(kind), "message": message}
	if id := obs.RequestIDFromContext(c.Request.Context()); id != "" {
		body["request_id"] = id
	}
	return body
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.InvalidDates:
		return http.StatusBadRequest
	case fault.RuleViolation:
		return http.StatusUnprocessableEntity
	case fault.Unavailable, fault.ExternalUnavailable:
		return http.StatusConflict
	case fault.InvalidStateTransition, fault.QuoteAlreadyConverted:
		return http.StatusConflict
	case fault.QuoteExpired:
		return http.StatusGone
	case fault.ExternalAdapterFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
