package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/services"
)

// InvitationHandler serves invite-or-add and the invitation lifecycle.
type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// Invite adds an existing account directly or sends an invitation to a new
// email. Responds 200 with the membership when added, 201 with the
// invitation when invited, 402 when the organization is out of seats.
func (h *InvitationHandler) Invite(c *gin.Context) {
	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	type InviteRequest struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = constants.RoleNameMember
	}

	result, err := h.invitations.InviteOrAdd(c.Request.Context(), services.InviteInput{
		InviterID:      actorID,
		OrganizationID: orgID,
		Email:          req.Email,
		RoleName:       req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == services.InviteOutcomeAdded {
		status = http.StatusOK
	}
	c.JSON(status, dto.ToInviteResponse(result))
}

// ListInvitations returns the organization's pending invitations
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	invs, err := h.invitations.ListPending(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": dto.ToInvitationDTOs(invs),
	})
}

// RevokeInvitation withdraws a pending invitation
func (h *InvitationHandler) RevokeInvitation(c *gin.Context) {
	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}
	invID, ok := parseIDParam(c, "invitation_id")
	if !ok {
		return
	}

	if err := h.invitations.Revoke(c.Request.Context(), actorID, orgID, invID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invitation revoked successfully",
	})
}

// AcceptInvitation lets a signed-in user join with an invitation token
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AcceptRequest struct {
		Token string `json:"token" binding:"required"`
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.invitations.Accept(c.Request.Context(), user, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization_id": member.OrganizationID,
		"role":            dto.ToRoleDTO(member.Role),
		"joined_at":       member.JoinedAt,
	})
}
