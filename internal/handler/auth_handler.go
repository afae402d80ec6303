package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotuseval/placement-backend/internal/middleware"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/lotuseval/placement-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Checks the admin password and returns a JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.AdminLogin(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Warn().Str("ip", c.ClientIP()).Msg("Failed admin login")
		}
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrAuthRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"subject":    claims.Subject,
		"token_type": claims.TokenType,
		"expires_at": claims.ExpiresAt,
	})
}
