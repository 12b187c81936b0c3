package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventInvitationCreated, 3, "a@example.com")
	b := NewEvent(EventInvitationCreated, 3, "a@example.com")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, EventInvitationCreated, a.Type)
	assert.False(t, a.Timestamp.IsZero())
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	event := NewEvent(EventMemberAdded, 3, "a@example.com")
	event.UserID = 9

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "member.added", decoded["event_type"])
	assert.EqualValues(t, 9, decoded["user_id"])
	assert.NotContains(t, decoded, "token")
	assert.NotContains(t, decoded, "invitation_id")
}

func TestLogPublisher_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	publisher := NewLogPublisher(zap.New(core))

	event := NewEvent(EventInvitationCreated, 5, "b@example.com")
	event.Token = "secret-token"
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Close())

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "invitation.created", fields["event_type"])
	assert.EqualValues(t, 5, fields["organization_id"])
	assert.NotContains(t, fields, "token")
}
