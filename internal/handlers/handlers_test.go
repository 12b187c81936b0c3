package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/authz"
	"github.com/yukikurage/agency-api/internal/constants"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/notify"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/services"
	"github.com/yukikurage/agency-api/internal/testutil"
	"github.com/yukikurage/agency-api/internal/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *token.Manager
	auth   *services.AuthService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	repos := repository.New(db)
	log := zap.NewNop()

	seats := services.NewSeatGate(repos, constants.DefaultMaxUsers, log)
	invitations := services.NewInvitationService(repos, seats, notify.NewLogPublisher(log), constants.DefaultInvitationTTL, log)
	auth := services.NewAuthService(repos, invitations, log)
	tokens := token.NewManager("test-secret", time.Hour)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	Router{
		Auth:          auth,
		Organizations: services.NewOrganizationService(repos, seats, log),
		Invitations:   invitations,
		Billing:       services.NewBillingService(repos, seats, log),
		Tasks:         services.NewTaskService(repos),
		Resolver:      authz.NewResolver(repos, log),
		Tokens:        tokens,
	}.Register(r)

	return &testEnv{t: t, db: db, router: r, tokens: tokens, auth: auth}
}

// tokenFor issues a bearer token for user.
func (e *testEnv) tokenFor(user *models.User) string {
	e.t.Helper()
	signed, _, err := e.tokens.Generate(user.ID, user.Email)
	require.NoError(e.t, err)
	return signed
}

func (e *testEnv) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ownedOrganization creates an organization with owner as its Owner.
func (e *testEnv) ownedOrganization(name string, owner *models.User) *models.Organization {
	e.t.Helper()
	org := testutil.CreateOrganization(e.t, e.db, name)
	testutil.AddMember(e.t, e.db, org.ID, owner.ID, constants.RoleNameOwner)
	return org
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()
	var apiErr apierrors.APIError
	decode(t, w, &apiErr)
	return apiErr
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
