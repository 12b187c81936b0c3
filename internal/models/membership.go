package models

import "time"

// Membership is the (user, organization, role) tenancy edge. The composite
// primary key keeps exactly one row per user and organization.
type Membership struct {
	OrganizationID uint64    `gorm:"primarykey" json:"organization_id"`
	UserID         uint64    `gorm:"primarykey" json:"user_id"`
	RoleID         uint64    `gorm:"not null;index" json:"role_id"`
	JoinedAt       time.Time `json:"joined_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role         Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}
