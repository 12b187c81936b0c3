package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/testutil"
	"go.uber.org/zap"
)

func TestInvitationReaper_RunOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	org := testutil.CreateOrganization(t, env.db, "acme")
	stale := testutil.CreateInvitation(t, env.db, org.ID, "stale@example.com", constants.RoleNameMember, now.Add(-time.Hour))
	fresh := testutil.CreateInvitation(t, env.db, org.ID, "fresh@example.com", constants.RoleNameMember, now.Add(time.Hour))

	reaper := NewInvitationReaper(env.repos, time.Minute, zap.NewNop())
	n, err := reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := env.repos.Invitations.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationExpired, got.Status)

	got, err = env.repos.Invitations.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, got.Status)

	n, err = reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvitationReaper_RunStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	reaper := NewInvitationReaper(env.repos, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reaper did not stop")
	}
}
