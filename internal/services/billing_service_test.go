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
)

func planID(t *testing.T, env *testEnv, name string) uint64 {
	t.Helper()
	var plan models.Plan
	require.NoError(t, env.db.Where("name = ?", name).First(&plan).Error)
	return plan.ID
}

func TestBillingService_OverviewWithoutSubscription(t *testing.T) {
	env := newTestEnv(t)
	org := testutil.CreateOrganization(t, env.db, "acme")

	overview, err := env.billing.Overview(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Nil(t, overview.Subscription)
	assert.Len(t, overview.Plans, 3)
	assert.Equal(t, 2, overview.Seats.Limit)
}

func TestBillingService_ChangePlanRaisesLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.db, "acme")
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	testutil.AddMember(t, env.db, org.ID, owner.ID, constants.RoleNameOwner)

	_, err := env.invitations.InviteOrAdd(ctx, InviteInput{InviterID: owner.ID, OrganizationID: org.ID, Email: "a@example.com", RoleName: constants.RoleNameMember})
	require.NoError(t, err)
	_, err = env.invitations.InviteOrAdd(ctx, InviteInput{InviterID: owner.ID, OrganizationID: org.ID, Email: "b@example.com", RoleName: constants.RoleNameMember})
	require.ErrorIs(t, err, ErrSeatLimitExceeded)

	sub, err := env.billing.ChangePlan(ctx, owner.ID, org.ID, planID(t, env, "Pro"))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, "Pro", sub.Plan.Name)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.After(time.Now()))

	_, err = env.invitations.InviteOrAdd(ctx, InviteInput{InviterID: owner.ID, OrganizationID: org.ID, Email: "b@example.com", RoleName: constants.RoleNameMember})
	require.NoError(t, err)

	sub, err = env.billing.ChangePlan(ctx, owner.ID, org.ID, planID(t, env, "Agency"))
	require.NoError(t, err)
	assert.Equal(t, "Agency", sub.Plan.Name)

	var subs int64
	require.NoError(t, env.db.Model(&models.Subscription{}).Count(&subs).Error)
	assert.Equal(t, int64(1), subs)
}

func TestBillingService_ChangePlanValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.Subscribe(t, env.db, org.ID, "Pro", models.SubscriptionActive)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := testutil.CreateUser(t, env.db, email)
		testutil.AddMember(t, env.db, org.ID, u.ID, constants.RoleNameMember)
	}

	_, err := env.billing.ChangePlan(ctx, 1, org.ID, planID(t, env, "Free"))
	assert.ErrorIs(t, err, ErrPlanTooSmall)

	_, err = env.billing.ChangePlan(ctx, 1, org.ID, 9999)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = env.billing.ChangePlan(ctx, 1, 9999, planID(t, env, "Pro"))
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}
