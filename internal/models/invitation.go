package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a pending offer to join an organization with a given role.
// An accepted invitation is deleted, so rows are normally pending.
type Invitation struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	OrganizationID uint64           `gorm:"not null;index:idx_invitations_org_email" json:"organization_id"`
	Email          string           `gorm:"type:varchar(255);not null;index:idx_invitations_org_email;index" json:"email"`
	RoleID         uint64           `gorm:"not null" json:"role_id"`
	InviterID      uint64           `gorm:"not null" json:"inviter_id"`
	Token          string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	Status         InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt      time.Time        `gorm:"not null;index" json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Role         Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// IsExpired reports whether the invitation is past its expiry at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsRedeemable reports whether the invitation can still be turned into a membership.
func (i *Invitation) IsRedeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
