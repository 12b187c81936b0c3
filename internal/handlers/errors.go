package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/constants"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/logger"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/services"
	"go.uber.org/zap"
)

// respondError maps a service error onto the API error envelope.
func respondError(c *gin.Context, err error) {
	var seatErr *services.SeatLimitError
	switch {
	case errors.As(err, &seatErr):
		apierrors.PaymentRequired(c, apierrors.ErrCodeSeatLimitExceeded, seatErr.Error(), gin.H{
			"limit":           seatErr.Limit,
			"current_members": seatErr.CurrentMembers,
			"pending_invites": seatErr.PendingInvites,
		})

	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidOrganizationName),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrPlanNotFound),
		errors.Is(err, services.ErrPlanTooSmall),
		errors.Is(err, services.ErrCannotRemoveYourself),
		errors.Is(err, services.ErrCannotChangeOwnRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvitationExpired):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvitationExpired, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())

	case errors.Is(err, services.ErrOwnerRoleRestricted),
		errors.Is(err, services.ErrInvitationEmailMismatch):
		apierrors.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrOrganizationMemberNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrClientNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAlreadyInvited):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeAlreadyInvited, "User already invited")
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeAlreadyMember, "User is already a member")

	default:
		logger.FromContext(c).Error("Request failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// scopedOrganization returns the organization RequirePermission resolved for
// this request.
func scopedOrganization(c *gin.Context) (uint64, bool) {
	id, ok := middleware.GetOrganizationID(c)
	if !ok {
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeMissingContext, "Organization context missing")
		return 0, false
	}
	return id, true
}
