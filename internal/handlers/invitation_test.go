package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/testutil"
)

func TestInvitationHandler_InviteNewEmail(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	org := env.ownedOrganization("acme", owner)

	w := env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", env.tokenFor(owner), map[string]string{
		"email": "Freelancer@Example.com",
		"role":  constants.RoleNameAdmin,
	})
	requireStatus(t, w, http.StatusCreated)

	var resp dto.InviteResponse
	decode(t, w, &resp)
	assert.Equal(t, services.InviteOutcomeInvited, resp.Outcome)
	require.NotNil(t, resp.Invitation)
	assert.Equal(t, "freelancer@example.com", resp.Invitation.Email)
	assert.Equal(t, constants.RoleNameAdmin, resp.Invitation.Role)
	assert.NotContains(t, w.Body.String(), "token")

	w = env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID)+"/invitations", env.tokenFor(owner), nil)
	requireStatus(t, w, http.StatusOK)

	var list struct {
		Invitations []dto.InvitationDTO `json:"invitations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Invitations, 1)
}

func TestInvitationHandler_InviteExistingAccountAddsDirectly(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	existing := testutil.CreateUser(t, env.db, "existing@example.com")
	org := env.ownedOrganization("acme", owner)

	w := env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", env.tokenFor(owner), map[string]string{
		"email": existing.Email,
	})
	requireStatus(t, w, http.StatusOK)

	var resp dto.InviteResponse
	decode(t, w, &resp)
	assert.Equal(t, services.InviteOutcomeAdded, resp.Outcome)
	require.NotNil(t, resp.Member)
	assert.Equal(t, existing.ID, resp.Member.User.ID)
	assert.Equal(t, constants.RoleNameMember, resp.Member.Role.Name)

	w = env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", env.tokenFor(owner), map[string]string{
		"email": existing.Email,
	})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, apierrors.ErrCodeAlreadyMember, decodeError(t, w).Code)
}

func TestInvitationHandler_SeatLimitReturnsPaymentRequired(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	org := env.ownedOrganization("acme", owner)
	path := "/api/organizations/" + itoa(org.ID) + "/invitations"

	w := env.do(http.MethodPost, path, env.tokenFor(owner), map[string]string{"email": "first@example.com"})
	requireStatus(t, w, http.StatusCreated)

	w = env.do(http.MethodPost, path, env.tokenFor(owner), map[string]string{"email": "first@example.com"})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, apierrors.ErrCodeAlreadyInvited, decodeError(t, w).Code)

	w = env.do(http.MethodPost, path, env.tokenFor(owner), map[string]string{"email": "second@example.com"})
	requireStatus(t, w, http.StatusPaymentRequired)

	apiErr := decodeError(t, w)
	assert.Equal(t, apierrors.ErrCodeSeatLimitExceeded, apiErr.Code)
	assert.Equal(t, "Plan limit reached (2 users). You have 1 members and 1 pending invites.", apiErr.Message)
	details, ok := apiErr.Details.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, details["limit"])
	assert.EqualValues(t, 1, details["current_members"])
	assert.EqualValues(t, 1, details["pending_invites"])
}

func TestInvitationHandler_MemberCannotInvite(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	member := testutil.CreateUser(t, env.db, "member@example.com")
	org := env.ownedOrganization("acme", owner)
	testutil.AddMember(t, env.db, org.ID, member.ID, constants.RoleNameMember)

	w := env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", env.tokenFor(member), map[string]string{
		"email": "someone@example.com",
	})
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, apierrors.ErrCodeInsufficientPermissions, decodeError(t, w).Code)
}

func TestInvitationHandler_RevokeFreesSeat(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	org := env.ownedOrganization("acme", owner)
	inv := testutil.CreateInvitation(t, env.db, org.ID, "pending@example.com", constants.RoleNameMember, time.Now().Add(time.Hour))
	bearer := env.tokenFor(owner)

	w := env.do(http.MethodDelete, "/api/organizations/"+itoa(org.ID)+"/invitations/"+itoa(inv.ID), bearer, nil)
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodDelete, "/api/organizations/"+itoa(org.ID)+"/invitations/"+itoa(inv.ID), bearer, nil)
	requireStatus(t, w, http.StatusNotFound)

	w = env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", bearer, map[string]string{"email": "next@example.com"})
	requireStatus(t, w, http.StatusCreated)
}

func TestInvitationHandler_Accept(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	invitee := testutil.CreateUser(t, env.db, "invitee@example.com")
	other := testutil.CreateUser(t, env.db, "other@example.com")
	org := env.ownedOrganization("acme", owner)
	inv := testutil.CreateInvitation(t, env.db, org.ID, invitee.Email, constants.RoleNameAdmin, time.Now().Add(time.Hour))

	w := env.do(http.MethodPost, "/api/invitations/accept", env.tokenFor(other), map[string]string{"token": inv.Token})
	requireStatus(t, w, http.StatusForbidden)

	w = env.do(http.MethodPost, "/api/invitations/accept", env.tokenFor(invitee), map[string]string{"token": inv.Token})
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID)+"/members", env.tokenFor(invitee), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodPost, "/api/invitations/accept", env.tokenFor(invitee), map[string]string{"token": inv.Token})
	requireStatus(t, w, http.StatusNotFound)
}

func TestInvitationHandler_AcceptExpired(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	invitee := testutil.CreateUser(t, env.db, "late@example.com")
	org := env.ownedOrganization("acme", owner)
	inv := testutil.CreateInvitation(t, env.db, org.ID, invitee.Email, constants.RoleNameMember, time.Now().Add(-time.Minute))

	w := env.do(http.MethodPost, "/api/invitations/accept", env.tokenFor(invitee), map[string]string{"token": inv.Token})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, apierrors.ErrCodeInvitationExpired, decodeError(t, w).Code)

	var stored models.Invitation
	require.NoError(t, env.db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvitationPending, stored.Status)
}
