package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/notify"
	"github.com/yukikurage/agency-api/internal/testutil"
)

func TestAuthService_RegisterCreatesOwnedOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.auth.Register(ctx, RegisterInput{
		Email:    "Alice@Example.com",
		Password: "password123",
		Name:     "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEqual(t, "password123", result.User.PasswordHash)
	assert.Equal(t, "Alice's Agency", result.Organization.Name)
	assert.Regexp(t, `^alice-?s-agency-[0-9a-f]{6}$`, result.Organization.Slug)

	member, err := env.repos.Organizations.FindMember(ctx, result.Organization.ID, result.User.ID)
	require.NoError(t, err)
	assert.True(t, member.Role.IsSystemOwner)
	assert.Empty(t, result.Redemption.Redeemed)
}

func TestAuthService_RegisterEmailHeldBySoftDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	gone := testutil.CreateUser(t, env.db, "gone@example.com")
	require.NoError(t, env.db.Delete(gone).Error)

	_, err := env.auth.Register(ctx, RegisterInput{Email: "gone@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	var orgs int64
	require.NoError(t, env.db.Model(&models.Organization{}).Count(&orgs).Error)
	assert.Zero(t, orgs)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Email: "bad", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	testutil.CreateUser(t, env.db, "taken@example.com")
	_, err = env.auth.Register(ctx, RegisterInput{Email: "taken@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_RegisterRedeemsPendingInvitations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	orgA := testutil.CreateOrganization(t, env.db, "org-a")
	orgB := testutil.CreateOrganization(t, env.db, "org-b")
	invA := testutil.CreateInvitation(t, env.db, orgA.ID, "bob@example.com", constants.RoleNameAdmin, expires)
	invB := testutil.CreateInvitation(t, env.db, orgB.ID, "bob@example.com", constants.RoleNameMember, expires)

	result, err := env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password123", Name: "Bob"})
	require.NoError(t, err)

	memberships, err := env.repos.Organizations.ListMembershipsByUserID(ctx, result.User.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 3)

	roles := map[uint64]string{}
	for _, m := range memberships {
		roles[m.OrganizationID] = m.Role.Name
	}
	assert.Equal(t, constants.RoleNameOwner, roles[result.Organization.ID])
	assert.Equal(t, constants.RoleNameAdmin, roles[orgA.ID])
	assert.Equal(t, constants.RoleNameMember, roles[orgB.ID])

	var remaining int64
	require.NoError(t, env.db.Model(&models.Invitation{}).Where("id IN ?", []uint64{invA.ID, invB.ID}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	assert.Len(t, result.Redemption.Redeemed, 2)
	assert.ElementsMatch(t,
		[]notify.EventType{notify.EventInvitationRedeemed, notify.EventInvitationRedeemed},
		env.publisher.types())
}

func TestAuthService_RegisterLeavesFullOrganizationInvitationPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	open := testutil.CreateOrganization(t, env.db, "open")
	full := testutil.CreateOrganization(t, env.db, "full")
	for _, email := range []string{"x@example.com", "y@example.com"} {
		u := testutil.CreateUser(t, env.db, email)
		testutil.AddMember(t, env.db, full.ID, u.ID, constants.RoleNameMember)
	}
	invOpen := testutil.CreateInvitation(t, env.db, open.ID, "carol@example.com", constants.RoleNameMember, expires)
	invFull := testutil.CreateInvitation(t, env.db, full.ID, "carol@example.com", constants.RoleNameMember, expires)

	result, err := env.auth.Register(ctx, RegisterInput{Email: "carol@example.com", Password: "password123"})
	require.NoError(t, err)

	require.Len(t, result.Redemption.Redeemed, 1)
	assert.Equal(t, invOpen.ID, result.Redemption.Redeemed[0].ID)
	require.Len(t, result.Redemption.Deferred, 1)
	assert.Equal(t, invFull.ID, result.Redemption.Deferred[0].ID)

	_, err = env.repos.Organizations.FindMember(ctx, open.ID, result.User.ID)
	assert.NoError(t, err)
	_, err = env.repos.Organizations.FindMember(ctx, full.ID, result.User.ID)
	assert.Error(t, err)

	stored, err := env.repos.Invitations.FindByID(ctx, invFull.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, stored.Status)
}

func TestAuthService_RegisterSkipsExpiredInvitations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.db, "org")
	testutil.CreateInvitation(t, env.db, org.ID, "dave@example.com", constants.RoleNameMember, time.Now().UTC().Add(-time.Hour))

	result, err := env.auth.Register(ctx, RegisterInput{Email: "dave@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Empty(t, result.Redemption.Redeemed)
	assert.Empty(t, result.Redemption.Deferred)

	_, err = env.repos.Organizations.FindMember(ctx, org.ID, result.User.ID)
	assert.Error(t, err)
}

func TestAuthService_RegisterIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.db, "org")
	testutil.CreateInvitation(t, env.db, org.ID, "erin@example.com", constants.RoleNameMember, time.Now().UTC().Add(time.Hour))

	// Redemption writes an audit entry; without the table it fails midway.
	require.NoError(t, env.db.Migrator().DropTable(&models.AuditLog{}))

	_, err := env.auth.Register(ctx, RegisterInput{Email: "erin@example.com", Password: "password123"})
	require.Error(t, err)

	var users, orgs, memberships int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, env.db.Model(&models.Organization{}).Count(&orgs).Error)
	require.NoError(t, env.db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.Zero(t, users)
	assert.Equal(t, int64(1), orgs)
	assert.Zero(t, memberships)

	var pending int64
	require.NoError(t, env.db.Model(&models.Invitation{}).Where("status = ?", models.InvitationPending).Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Email: "frank@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := env.auth.Login(ctx, LoginInput{Email: "FRANK@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "frank@example.com", user.Email)

	_, err = env.auth.Login(ctx, LoginInput{Email: "frank@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := env.auth.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = env.auth.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
