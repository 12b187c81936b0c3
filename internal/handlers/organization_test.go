package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/testutil"
)

func TestOrganizationHandler_CreateAndList(t *testing.T) {
	env := setupTestEnv(t)
	user := testutil.CreateUser(t, env.db, "founder@example.com")
	bearer := env.tokenFor(user)

	w := env.do(http.MethodPost, "/api/organizations", bearer, map[string]string{"name": "Studio Nine"})
	requireStatus(t, w, http.StatusCreated)

	var created dto.OrganizationDTO
	decode(t, w, &created)
	assert.Equal(t, "Studio Nine", created.Name)
	assert.NotEmpty(t, created.Slug)

	w = env.do(http.MethodGet, "/api/organizations", bearer, nil)
	requireStatus(t, w, http.StatusOK)

	var list struct {
		Organizations []dto.OrganizationWithRoleDTO `json:"organizations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Organizations, 1)
	assert.Equal(t, created.ID, list.Organizations[0].ID)
	assert.True(t, list.Organizations[0].Role.IsOwner)
}

func TestOrganizationHandler_NonMemberIsForbidden(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	outsider := testutil.CreateUser(t, env.db, "outsider@example.com")
	org := env.ownedOrganization("acme", owner)

	w := env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID), env.tokenFor(outsider), nil)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, apierrors.ErrCodeNotAMember, decodeError(t, w).Code)
}

func TestOrganizationHandler_MemberLacksDeletePermission(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	member := testutil.CreateUser(t, env.db, "member@example.com")
	org := env.ownedOrganization("acme", owner)
	testutil.AddMember(t, env.db, org.ID, member.ID, constants.RoleNameMember)

	w := env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID), env.tokenFor(member), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodDelete, "/api/organizations/"+itoa(org.ID), env.tokenFor(member), nil)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, apierrors.ErrCodeInsufficientPermissions, decodeError(t, w).Code)

	w = env.do(http.MethodDelete, "/api/organizations/"+itoa(org.ID), env.tokenFor(owner), nil)
	requireStatus(t, w, http.StatusOK)
}

func TestOrganizationHandler_UnknownOrganizationIsForbidden(t *testing.T) {
	env := setupTestEnv(t)
	user := testutil.CreateUser(t, env.db, "user@example.com")

	w := env.do(http.MethodGet, "/api/organizations/9999", env.tokenFor(user), nil)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, apierrors.ErrCodeNotAMember, decodeError(t, w).Code)

	w = env.do(http.MethodGet, "/api/organizations/0", env.tokenFor(user), nil)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestOrganizationHandler_SuperAdminBypassesMembership(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	admin := testutil.CreateUser(t, env.db, "root@example.com")
	require.NoError(t, env.db.Model(admin).Update("is_super_admin", true).Error)
	org := env.ownedOrganization("acme", owner)

	w := env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID)+"/seats", env.tokenFor(admin), nil)
	requireStatus(t, w, http.StatusOK)

	var seats dto.SeatsDTO
	decode(t, w, &seats)
	assert.Equal(t, constants.DefaultMaxUsers, seats.Limit)
	assert.Equal(t, int64(1), seats.CurrentMembers)
	assert.Equal(t, int64(1), seats.Available)
}

func TestOrganizationHandler_AdminCannotGrantOwner(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	admin := testutil.CreateUser(t, env.db, "admin@example.com")
	member := testutil.CreateUser(t, env.db, "member@example.com")
	org := env.ownedOrganization("acme", owner)
	testutil.Subscribe(t, env.db, org.ID, "Pro", models.SubscriptionActive)
	testutil.AddMember(t, env.db, org.ID, admin.ID, constants.RoleNameAdmin)
	testutil.AddMember(t, env.db, org.ID, member.ID, constants.RoleNameMember)

	path := "/api/organizations/" + itoa(org.ID) + "/members/" + itoa(member.ID) + "/role"

	w := env.do(http.MethodPut, path, env.tokenFor(admin), map[string]string{"role": constants.RoleNameOwner})
	requireStatus(t, w, http.StatusForbidden)

	w = env.do(http.MethodPut, path, env.tokenFor(admin), map[string]string{"role": constants.RoleNameAdmin})
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodPut, path, env.tokenFor(owner), map[string]string{"role": constants.RoleNameOwner})
	requireStatus(t, w, http.StatusOK)
}

func TestOrganizationHandler_RemoveMember(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	member := testutil.CreateUser(t, env.db, "member@example.com")
	org := env.ownedOrganization("acme", owner)
	testutil.AddMember(t, env.db, org.ID, member.ID, constants.RoleNameMember)

	base := "/api/organizations/" + itoa(org.ID) + "/members/"

	w := env.do(http.MethodDelete, base+itoa(owner.ID), env.tokenFor(owner), nil)
	requireStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodDelete, base+itoa(member.ID), env.tokenFor(owner), nil)
	requireStatus(t, w, http.StatusOK)

	// Revocation is effective on the next request.
	w = env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID), env.tokenFor(member), nil)
	requireStatus(t, w, http.StatusForbidden)
}

func TestOrganizationHandler_ListRolesAndAudit(t *testing.T) {
	env := setupTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@example.com")
	org := env.ownedOrganization("acme", owner)
	bearer := env.tokenFor(owner)

	w := env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID)+"/roles", bearer, nil)
	requireStatus(t, w, http.StatusOK)

	var roles struct {
		Roles []dto.RoleDTO `json:"roles"`
	}
	decode(t, w, &roles)
	require.Len(t, roles.Roles, 3)

	w = env.do(http.MethodPost, "/api/organizations/"+itoa(org.ID)+"/invitations", bearer, map[string]string{"email": "new@example.com"})
	requireStatus(t, w, http.StatusCreated)

	w = env.do(http.MethodGet, "/api/organizations/"+itoa(org.ID)+"/audit", bearer, nil)
	requireStatus(t, w, http.StatusOK)

	var audit struct {
		Entries []dto.AuditLogDTO `json:"entries"`
	}
	decode(t, w, &audit)
	require.Len(t, audit.Entries, 1)
	assert.Equal(t, models.AuditMemberInvited, audit.Entries[0].Action)
}

func TestScopedOrganization_ReadsResolvedContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	// The path parameter alone is not trusted.
	_, ok := scopedOrganization(c)
	require.False(t, ok)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, apierrors.ErrCodeMissingContext, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(constants.ContextKeyOrganizationID, uint64(42))

	id, ok := scopedOrganization(c)
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)
}
