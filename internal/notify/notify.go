// Package notify publishes membership events for downstream delivery (the
// email sender and realtime broadcast consume them).
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInvitationCreated  EventType = "invitation.created"
	EventInvitationRedeemed EventType = "invitation.redeemed"
	EventInvitationRevoked  EventType = "invitation.revoked"
	EventMemberAdded        EventType = "member.added"
)

// Event describes one membership change. Token is only set for
// invitation.created so the mailer can build the accept link.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	OrganizationID uint64    `json:"organization_id"`
	Email          string    `json:"email"`
	UserID         uint64    `json:"user_id,omitempty"`
	RoleName       string    `json:"role_name,omitempty"`
	ActorID        uint64    `json:"actor_id,omitempty"`
	InvitationID   uint64    `json:"invitation_id,omitempty"`
	Token          string    `json:"token,omitempty"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, organizationID uint64, email string) *Event {
	return &Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		OrganizationID: organizationID,
		Email:          email,
	}
}

// Publisher delivers events. Publish is called after the change it describes
// has committed.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
