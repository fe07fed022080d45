package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dustinober1/pmp-application-sub001/internal/usecase"
)

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// RegisterRoutes binds the password reset routes.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/request-reset", h.requestReset)
	r.POST("/reset", h.confirmReset)
}

// RequestReset godoc
// @Summary Request a password reset
// @Description Mints a reset token for the address when it is registered. The response is identical either way.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset request payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/password/request-reset [post]
func (h *PasswordHandler) requestReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset request payload"))
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		RespondWithAuthError(c, err, "failed to request password reset")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "if the address is registered, a reset link has been sent",
	})
}

// ConfirmReset godoc
// @Summary Reset a password with a one-time token
// @Description Sets a new password, clears any lockout, and revokes every live session. Tokens are single use.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Reset confirmation payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/password/reset [post]
func (h *PasswordHandler) confirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset confirmation payload"))
		return
	}

	if err := validatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	if err := h.reset.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondWithAuthError(c, err, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
