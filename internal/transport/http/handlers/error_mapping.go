package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/transport/http/middleware"
)

// RespondWithAuthError writes the transport representation of a domain
// failure. Typed failures keep their code, suggestion, and lock deadline;
// anything else collapses to an opaque 500 so store and crypto errors never
// leak to clients.
func RespondWithAuthError(c *gin.Context, err error, fallbackMessage string) {
	ae, ok := domain.AsAuthError(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallbackMessage))
		return
	}

	c.JSON(statusForKind(ae.Kind), ErrorResponse{
		Error:       ae.Message,
		Code:        ae.Code,
		Suggestion:  ae.Suggestion,
		LockedUntil: ae.LockedUntil,
		RequestID:   middleware.GetRequestID(c),
	})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
