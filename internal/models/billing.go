package models

import "time"

// Plan is a seat-limit policy plus the billing provider's price reference.
type Plan struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	MaxUsers  int       `gorm:"not null" json:"max_users"`
	PriceID   string    `gorm:"type:varchar(100)" json:"price_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription links one organization to one plan.
type Subscription struct {
	ID                 uint64             `gorm:"primarykey" json:"id"`
	OrganizationID     uint64             `gorm:"uniqueIndex;not null" json:"organization_id"`
	PlanID             uint64             `gorm:"not null" json:"plan_id"`
	Status             SubscriptionStatus `gorm:"type:varchar(20);not null" json:"status"`
	ExternalID         string             `gorm:"type:varchar(100)" json:"external_id,omitempty"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	// Relations
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
