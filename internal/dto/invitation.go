package dto

import (
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
)

// InvitationDTO represents a pending invitation. The token is never exposed;
// it only travels in the notification sent to the invitee.
type InvitationDTO struct {
	ID             uint64                  `json:"id"`
	OrganizationID uint64                  `json:"organization_id"`
	Email          string                  `json:"email"`
	Role           string                  `json:"role,omitempty"`
	InviterID      uint64                  `json:"inviter_id"`
	Status         models.InvitationStatus `json:"status"`
	ExpiresAt      time.Time               `json:"expires_at"`
	CreatedAt      time.Time               `json:"created_at"`
}

// InviteResponse is returned by invite-or-add
type InviteResponse struct {
	Outcome    services.InviteOutcome `json:"outcome"`
	Member     *MemberDTO             `json:"member,omitempty"`
	Invitation *InvitationDTO         `json:"invitation,omitempty"`
	Seats      *SeatsDTO              `json:"seats,omitempty"`
}

// RedemptionDTO summarizes invitations redeemed at registration
type RedemptionDTO struct {
	Joined   []InvitationDTO `json:"joined"`
	Deferred []InvitationDTO `json:"deferred"`
}

// ToInvitationDTO converts an Invitation model to InvitationDTO
func ToInvitationDTO(inv models.Invitation) InvitationDTO {
	return InvitationDTO{
		ID:             inv.ID,
		OrganizationID: inv.OrganizationID,
		Email:          inv.Email,
		Role:           inv.Role.Name,
		InviterID:      inv.InviterID,
		Status:         inv.Status,
		ExpiresAt:      inv.ExpiresAt,
		CreatedAt:      inv.CreatedAt,
	}
}

// ToInvitationDTOs converts an invitation list
func ToInvitationDTOs(invs []models.Invitation) []InvitationDTO {
	out := make([]InvitationDTO, len(invs))
	for i, inv := range invs {
		out[i] = ToInvitationDTO(inv)
	}
	return out
}

// ToInviteResponse converts an invite-or-add result
func ToInviteResponse(r *services.InviteResult) InviteResponse {
	resp := InviteResponse{Outcome: r.Outcome}
	if r.Membership != nil {
		m := ToMemberDTO(*r.Membership)
		resp.Member = &m
	}
	if r.Invitation != nil {
		inv := ToInvitationDTO(*r.Invitation)
		resp.Invitation = &inv
	}
	if r.Seats != nil {
		s := ToSeatsDTO(r.Seats)
		resp.Seats = &s
	}
	return resp
}

// ToRedemptionDTO converts a redemption result
func ToRedemptionDTO(r *services.RedemptionResult) RedemptionDTO {
	if r == nil {
		return RedemptionDTO{Joined: []InvitationDTO{}, Deferred: []InvitationDTO{}}
	}
	return RedemptionDTO{
		Joined:   ToInvitationDTOs(r.Redeemed),
		Deferred: ToInvitationDTOs(r.Deferred),
	}
}
