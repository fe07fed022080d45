package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/transport/http/middleware"
	"github.com/dustinober1/pmp-application-sub001/internal/usecase"
)

// AuthHandler exposes the credential and session lifecycle endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	isDev        bool
}

// AuthHandlerOption configures optional AuthHandler dependencies.
type AuthHandlerOption func(*AuthHandler)

// WithRegistrationService injects the registration service dependency.
func WithRegistrationService(registration *usecase.RegistrationService) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.registration = registration
	}
}

// WithDevMode toggles development-only behaviour (e.g. returning verification
// tokens in responses instead of relying on event delivery).
func WithDevMode(isDev bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.isDev = isDev
	}
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, opts ...AuthHandlerOption) *AuthHandler {
	handler := &AuthHandler{auth: auth}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RegisterRoutes binds the authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
	r.POST("/login", h.login)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", h.logout)
	r.POST("/verify-email", h.verifyEmail)
	r.POST("/resend-verification", middleware.RequireAuth(h.auth), h.resendVerification)
	r.GET("/me", middleware.RequireAuth(h.auth), h.me)
}

// Register godoc
// @Summary Register a new user account
// @Description Creates a new account and signs the user in immediately.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration payload"
// @Success 201 {object} TokenPairResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if err := validatePassword(req.Password, req.Email, req.DisplayName); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	profile, pair, err := h.registration.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		RespondWithAuthError(c, err, "failed to register user")
		return
	}

	user := newUserSummary(profile)
	c.JSON(http.StatusCreated, newTokenPairResponse(pair, &user))
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Issues an access/refresh token pair on valid credentials.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} TokenPairResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	profile, pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		RespondWithAuthError(c, err, "failed to login")
		return
	}

	user := newUserSummary(profile)
	c.JSON(http.StatusOK, newTokenPairResponse(pair, &user))
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Rotates a refresh token into a fresh token pair. The presented token is consumed.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh payload"
// @Success 200 {object} TokenPairResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithAuthError(c, err, "failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(pair, nil))
}

// Logout godoc
// @Summary Revoke the current session
// @Description Deletes the refresh token and denylists the presented access token. Safe to repeat.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LogoutRequest false "Logout payload"
// @Success 200 {object} MessageResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	var req LogoutRequest
	// An empty body is a valid logout: only the access token gets revoked.
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid logout payload"))
			return
		}
	}

	accessToken := bearerTokenFromHeader(c)

	if err := h.auth.Logout(c.Request.Context(), accessToken, req.RefreshToken); err != nil {
		RespondWithAuthError(c, err, "failed to logout")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Description Redeems a one-time verification token. Tokens are single use.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *AuthHandler) verifyEmail(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	if err := h.registration.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		RespondWithAuthError(c, err, "failed to verify email")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// ResendVerification godoc
// @Summary Resend the email verification token
// @Description Mints a fresh verification token for the authenticated user, superseding any earlier one.
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/auth/resend-verification [post]
func (h *AuthHandler) resendVerification(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	token, err := h.registration.ResendVerification(c.Request.Context(), userID)
	if err != nil {
		RespondWithAuthError(c, err, "failed to resend verification")
		return
	}

	if token == "" {
		c.JSON(http.StatusOK, MessageResponse{Message: "email already verified"})
		return
	}

	resp := gin.H{"message": "verification email sent"}
	if h.isDev {
		// Delivery normally happens out of band via the event stream.
		resp["dev_token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary Fetch the authenticated user's profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} UserSummary
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	profile, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondWithAuthError(c, err, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserSummary(profile))
}

// bearerTokenFromHeader extracts the Bearer credential without enforcing its
// presence. Logout accepts requests with no Authorization header at all.
func bearerTokenFromHeader(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// validatePassword enforces the password policy at the edge so weak secrets
// never reach the hasher.
func validatePassword(password string, userInputs ...string) error {
	inputs := make([]string, 0, len(userInputs))
	for _, input := range userInputs {
		if input != "" {
			inputs = append(inputs, input)
		}
	}

	validator := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.MaxLengthRule(128),
		security.RequirePasswordStrengthRule(2, inputs...),
	)
	return validator.Validate(password)
}
