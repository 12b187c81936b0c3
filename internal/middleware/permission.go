package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/authz"
	"github.com/yukikurage/agency-api/internal/constants"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/logger"
	"go.uber.org/zap"
)

var errInvalidID = errors.New("invalid id")

// Locator extracts the resource a request acts on
type Locator func(c *gin.Context) (authz.ResourceRef, error)

// OrganizationParam locates an organization by path parameter
func OrganizationParam(name string) Locator { return paramLocator(name, authz.OrganizationRef) }

// ClientParam locates a client by path parameter
func ClientParam(name string) Locator { return paramLocator(name, authz.ClientRef) }

// ProjectParam locates a project by path parameter
func ProjectParam(name string) Locator { return paramLocator(name, authz.ProjectRef) }

// TaskParam locates a task by path parameter
func TaskParam(name string) Locator { return paramLocator(name, authz.TaskRef) }

func paramLocator(name string, ref func(uint64) authz.ResourceRef) Locator {
	return func(c *gin.Context) (authz.ResourceRef, error) {
		raw := c.Param(name)
		if raw == "" {
			return authz.NoContext, nil
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return authz.NoContext, errInvalidID
		}
		return ref(id), nil
	}
}

// RequirePermission lets the request through only if the resolver allows the
// authenticated user permission on the located resource. Must run after
// RequireAuth.
func RequirePermission(resolver *authz.Resolver, permission string, locate Locator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		ref, err := locate(c)
		if err != nil {
			apierrors.BadRequest(c, "Invalid resource ID")
			return
		}

		decision, err := resolver.Authorize(c.Request.Context(), user, ref, permission)
		if err != nil {
			respondAuthzError(c, err)
			return
		}

		c.Set(constants.ContextKeyDecision, decision)
		if decision.OrganizationID != 0 {
			c.Set(constants.ContextKeyOrganizationID, decision.OrganizationID)
		}
		c.Next()
	}
}

func respondAuthzError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, authz.ErrMissingContext):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeMissingContext, "Organization context missing")
	case errors.Is(err, authz.ErrNotAMember):
		apierrors.ForbiddenWithCode(c, apierrors.ErrCodeNotAMember, "Not a member of this organization")
	case errors.Is(err, authz.ErrInsufficientPermission):
		apierrors.ForbiddenWithCode(c, apierrors.ErrCodeInsufficientPermissions, "Insufficient permission")
	default:
		logger.FromContext(c).Error("Authorization failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}

func getDecision(c *gin.Context) (*authz.Decision, bool) {
	v, exists := c.Get(constants.ContextKeyDecision)
	if !exists {
		return nil, false
	}
	d, ok := v.(*authz.Decision)
	return d, ok
}

// GetOrganizationID retrieves the resolved organization ID from context
func GetOrganizationID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyOrganizationID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
