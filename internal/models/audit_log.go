package models

import "time"

type AuditAction string

const (
	AuditMemberInvited      AuditAction = "member.invited"
	AuditMemberAdded        AuditAction = "member.added"
	AuditMemberRemoved      AuditAction = "member.removed"
	AuditRoleChanged        AuditAction = "member.role_changed"
	AuditInvitationAccepted AuditAction = "invitation.accepted"
	AuditInvitationRevoked  AuditAction = "invitation.revoked"
	AuditPlanChanged        AuditAction = "billing.plan_changed"
)

type AuditLog struct {
	ID             uint64      `gorm:"primarykey" json:"id"`
	OrganizationID uint64      `gorm:"not null;index" json:"organization_id"`
	ActorID        uint64      `gorm:"not null" json:"actor_id"`
	Action         AuditAction `gorm:"type:varchar(50);not null" json:"action"`
	TargetType     string      `gorm:"type:varchar(50)" json:"target_type"`
	TargetID       uint64      `json:"target_id"`
	Details        string      `gorm:"type:text" json:"details,omitempty"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
}
