package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/usecase"
)

const (
	// UserIDKey is the gin context key for the authenticated user ID.
	UserIDKey = "user_id"
	// ClaimsKey is the gin context key for the parsed access token claims.
	ClaimsKey = "claims"
	// TierKey is the gin context key for the entitlement tier claim.
	TierKey = "tier"
)

// ErrorResponse mirrors the handlers error payload so middleware rejections
// look the same on the wire.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, message, code string) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: GetRequestID(c),
	}
}

// RequireAuth validates the Authorization header and stores the authenticated
// principal in the request context.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := auth.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if ae, ok := domain.AsAuthError(err); ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, ae.Message, ae.Code))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed", ""))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		c.Set(TierKey, claims.Tier)

		c.Next()
	}
}

// bearerToken extracts the Bearer credential, aborting with a 401 when the
// header is missing or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing authorization header", ""))
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'", ""))
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing access token", ""))
		return "", false
	}

	return token, true
}

// GetAuthenticatedUserID retrieves the user ID stored by RequireAuth.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := value.(string); ok && id != "" {
		return id, true
	}
	return "", false
}
