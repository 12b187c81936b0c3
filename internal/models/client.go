package models

import (
	"time"

	"gorm.io/gorm"
)

type Client struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Email          string         `gorm:"type:varchar(255)" json:"email,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Projects []Project `gorm:"foreignKey:ClientID" json:"projects,omitempty"`
}

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	ClientID    uint64         `gorm:"not null;index" json:"client_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Client Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Tasks  []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
