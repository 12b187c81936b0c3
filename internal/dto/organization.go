package dto

import (
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	IsSuperAdmin bool   `json:"is_super_admin,omitempty"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleDTO represents a role in API responses
type RoleDTO struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	IsOwner     bool     `json:"is_owner"`
	Permissions []string `json:"permissions,omitempty"`
}

// OrganizationWithRoleDTO represents an organization with the user's role
type OrganizationWithRoleDTO struct {
	OrganizationDTO
	Role RoleDTO `json:"role"`
}

// MemberDTO represents a member in an organization
type MemberDTO struct {
	User     UserDTO   `json:"user"`
	Role     RoleDTO   `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// SeatsDTO is the seat usage shown to organization admins
type SeatsDTO struct {
	PlanName       string `json:"plan_name"`
	Limit          int    `json:"limit"`
	CurrentMembers int64  `json:"current_members"`
	PendingInvites int64  `json:"pending_invites"`
	Available      int64  `json:"available"`
}

// AuditLogDTO represents an audit entry
type AuditLogDTO struct {
	ID         uint64             `json:"id"`
	ActorID    uint64             `json:"actor_id"`
	Action     models.AuditAction `json:"action"`
	TargetType string             `json:"target_type,omitempty"`
	TargetID   uint64             `json:"target_id,omitempty"`
	Details    string             `json:"details,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		IsSuperAdmin: user.IsSuperAdmin,
	}
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}
}

// ToRoleDTO converts a Role model to RoleDTO
func ToRoleDTO(role models.Role) RoleDTO {
	return RoleDTO{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsOwner:     role.IsSystemOwner,
	}
}

// ToRoleDTOs converts roles with their permission keys
func ToRoleDTOs(roles []services.RoleWithPermissions) []RoleDTO {
	out := make([]RoleDTO, len(roles))
	for i, r := range roles {
		out[i] = ToRoleDTO(r.Role)
		out[i].Permissions = r.Permissions
	}
	return out
}

// ToOrganizationWithRoleDTO converts a membership to DTO with role
func ToOrganizationWithRoleDTO(m models.Membership) OrganizationWithRoleDTO {
	return OrganizationWithRoleDTO{
		OrganizationDTO: ToOrganizationDTO(m.Organization),
		Role:            ToRoleDTO(m.Role),
	}
}

// ToMemberDTO converts a membership to DTO
func ToMemberDTO(m models.Membership) MemberDTO {
	return MemberDTO{
		User:     ToUserDTO(m.User),
		Role:     ToRoleDTO(m.Role),
		JoinedAt: m.JoinedAt,
	}
}

// ToMemberDTOs converts a member list
func ToMemberDTOs(members []models.Membership) []MemberDTO {
	out := make([]MemberDTO, len(members))
	for i, m := range members {
		out[i] = ToMemberDTO(m)
	}
	return out
}

// ToSeatsDTO converts seat usage
func ToSeatsDTO(u *services.SeatUsage) SeatsDTO {
	available := int64(u.Limit) - u.Used()
	if available < 0 {
		available = 0
	}
	return SeatsDTO{
		PlanName:       u.PlanName,
		Limit:          u.Limit,
		CurrentMembers: u.CurrentMembers,
		PendingInvites: u.PendingInvites,
		Available:      available,
	}
}

// ToAuditLogDTOs converts audit entries
func ToAuditLogDTOs(entries []models.AuditLog) []AuditLogDTO {
	out := make([]AuditLogDTO, len(entries))
	for i, e := range entries {
		out[i] = AuditLogDTO{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}
