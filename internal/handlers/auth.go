package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/token"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	tokens      *token.Manager
}

// NewAuthHandler creates a new AuthHandler. tokens may be nil, in which case
// only session authentication is offered.
func NewAuthHandler(authService *services.AuthService, tokens *token.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
	}
}

type authResponse struct {
	User         dto.UserDTO          `json:"user"`
	Organization *dto.OrganizationDTO `json:"organization,omitempty"`
	Invitations  *dto.RedemptionDTO   `json:"invitations,omitempty"`
	Token        string               `json:"token,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
}

// Register creates an account with its own organization and joins every
// organization that has a pending invitation for the email.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Email            string `json:"email" binding:"required"`
		Password         string `json:"password" binding:"required"`
		Name             string `json:"name" binding:"max=255"`
		OrganizationName string `json:"organization_name" binding:"max=255"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, ok := h.startSession(c, result.User)
	if !ok {
		return
	}
	org := dto.ToOrganizationDTO(*result.Organization)
	redemption := dto.ToRedemptionDTO(result.Redemption)
	resp.Organization = &org
	resp.Invitations = &redemption

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, ok := h.startSession(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// startSession stores the user in the session and, when token auth is
// enabled, issues a bearer token.
func (h *AuthHandler) startSession(c *gin.Context, user *models.User) (authResponse, bool) {
	resp := authResponse{User: dto.ToUserDTO(*user)}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return resp, false
	}

	if h.tokens != nil {
		signed, expiresAt, err := h.tokens.Generate(user.ID, user.Email)
		if err != nil {
			apierrors.InternalError(c, "Failed to issue token")
			return resp, false
		}
		resp.Token = signed
		resp.ExpiresAt = &expiresAt
	}
	return resp, true
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
