package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/constants"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/logger"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/token"
	"go.uber.org/zap"
)

// UserLoader loads the authenticated user's record
type UserLoader interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth authenticates the request by session cookie or bearer token
// and stores the user in context. tokens may be nil to accept sessions only.
func RequireAuth(users UserLoader, tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerUserID(c, tokens)
		if !ok {
			userID, ok = sessionUserID(c)
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				apierrors.Unauthorized(c, "")
				return
			}
			logger.FromContext(c).Error("Failed to load authenticated user", zap.Uint64("user_id", userID), zap.Error(err))
			apierrors.InternalError(c, "")
			return
		}

		// Store user in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func bearerUserID(c *gin.Context, tokens *token.Manager) (uint64, bool) {
	if tokens == nil {
		return 0, false
	}
	scheme, raw, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return 0, false
	}
	claims, err := tokens.Validate(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func sessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	switch v := session.Get(constants.ContextKeyUserID).(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUser retrieves the current user from context
func GetUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
