package models

import "time"

// Role is a named bundle of permissions. Roles are global reference data.
//
// IsSystemOwner marks the immutable owner role. Authorization short-circuits on
// this flag, never on Name, so renaming the role cannot widen or narrow access.
type Role struct {
	ID            uint64    `gorm:"primarykey" json:"id"`
	Name          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description   string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	IsSystem      bool      `gorm:"not null;default:false" json:"is_system"`
	IsSystemOwner bool      `gorm:"not null;default:false" json:"is_system_owner"`
	CreatedAt     time.Time `json:"created_at"`
}

// Permission is an atomic capability keyed by "resource:action".
type Permission struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Key         string    `gorm:"column:permission_key;type:varchar(100);uniqueIndex;not null" json:"key"`
	Description string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RolePermission links a role to one of its permissions.
type RolePermission struct {
	RoleID       uint64 `gorm:"primarykey" json:"role_id"`
	PermissionID uint64 `gorm:"primarykey" json:"permission_id"`

	// Relations
	Role       Role       `gorm:"foreignKey:RoleID" json:"-"`
	Permission Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
