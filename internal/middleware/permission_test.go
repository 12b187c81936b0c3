package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/authz"
	"github.com/yukikurage/agency-api/internal/constants"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type permissionEnv struct {
	db       *gorm.DB
	resolver *authz.Resolver
}

func setupPermissionEnv(t *testing.T) permissionEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	return permissionEnv{db: db, resolver: authz.NewResolver(repository.New(db), zap.NewNop())}
}

// serve runs RequirePermission for user against a route shaped like path.
func (e permissionEnv) serve(user *models.User, permission, route string, locate Locator, path string) (*httptest.ResponseRecorder, *authz.Decision, uint64) {
	var decision *authz.Decision
	var orgID uint64

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(constants.ContextKeyUserID, user.ID)
			c.Set(constants.ContextKeyUser, user)
		}
		c.Next()
	})
	r.GET(route, RequirePermission(e.resolver, permission, locate), func(c *gin.Context) {
		decision, _ = getDecision(c)
		orgID, _ = GetOrganizationID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w, decision, orgID
}

func uitoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr.Code
}

func TestRequirePermission_MemberWithPermission(t *testing.T) {
	env := setupPermissionEnv(t)
	user := testutil.CreateUser(t, env.db, "member@example.com")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, user.ID, constants.RoleNameMember)

	w, decision, orgID := env.serve(user, constants.PermOrgRead, "/orgs/:id", OrganizationParam("id"), "/orgs/"+uitoa(org.ID))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, decision)
	assert.Equal(t, authz.GrantPermission, decision.Grant)
	assert.Equal(t, org.ID, orgID)
}

func TestRequirePermission_DerivesOrganizationFromTask(t *testing.T) {
	env := setupPermissionEnv(t)
	user := testutil.CreateUser(t, env.db, "member@example.com")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, user.ID, constants.RoleNameMember)
	_, _, task := testutil.CreateTaskChain(t, env.db, org.ID, user.ID)

	w, _, orgID := env.serve(user, constants.PermTasksWrite, "/tasks/:id", TaskParam("id"), "/tasks/"+uitoa(task.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org.ID, orgID)
}

func TestRequirePermission_Denials(t *testing.T) {
	env := setupPermissionEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com")
	outsider := testutil.CreateUser(t, env.db, "outsider@example.com")
	org := testutil.CreateOrganization(t, env.db, "acme")
	testutil.AddMember(t, env.db, org.ID, member.ID, constants.RoleNameMember)
	orgPath := "/orgs/" + uitoa(org.ID)

	w, _, _ := env.serve(member, constants.PermBillingWrite, "/orgs/:id", OrganizationParam("id"), orgPath)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.ErrCodeInsufficientPermissions, errorCode(t, w))

	w, _, _ = env.serve(outsider, constants.PermOrgRead, "/orgs/:id", OrganizationParam("id"), orgPath)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.ErrCodeNotAMember, errorCode(t, w))

	w, _, _ = env.serve(member, constants.PermOrgRead, "/clients/:id", ClientParam("id"), "/clients/404")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeMissingContext, errorCode(t, w))

	w, _, _ = env.serve(member, constants.PermOrgRead, "/projects/:id", ProjectParam("id"), "/projects/zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _, _ = env.serve(nil, constants.PermOrgRead, "/orgs/:id", OrganizationParam("id"), orgPath)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission_MissingParamIsMissingContext(t *testing.T) {
	env := setupPermissionEnv(t)
	user := testutil.CreateUser(t, env.db, "member@example.com")

	w, _, _ := env.serve(user, constants.PermOrgRead, "/orgs", OrganizationParam("id"), "/orgs")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeMissingContext, errorCode(t, w))
}

func TestRequirePermission_SuperAdminWithoutContext(t *testing.T) {
	env := setupPermissionEnv(t)
	admin := testutil.CreateUser(t, env.db, "root@example.com")
	admin.IsSuperAdmin = true

	w, decision, orgID := env.serve(admin, constants.PermOrgDelete, "/orgs", OrganizationParam("id"), "/orgs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, authz.GrantSuperAdmin, decision.Grant)
	assert.Zero(t, orgID)
}
