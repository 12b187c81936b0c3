// Package testutil builds seeded in-memory databases and fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/agency-api/internal/database"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated and seeded sqlite database. The pool holds a single
// connection so every statement sees the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	require.NoError(t, database.Seed(db))

	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		Name:         email,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateOrganization(t *testing.T, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name: name,
		Slug: name,
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func Role(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where("name = ?", name).First(&role).Error)
	return &role
}

func AddMember(t *testing.T, db *gorm.DB, orgID, userID uint64, roleName string) *models.Membership {
	t.Helper()
	member := &models.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		RoleID:         Role(t, db, roleName).ID,
		JoinedAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Omit("Organization", "User", "Role").Create(member).Error)
	return member
}

func CreateInvitation(t *testing.T, db *gorm.DB, orgID uint64, email, roleName string, expiresAt time.Time) *models.Invitation {
	t.Helper()
	token, err := utils.GenerateInvitationToken()
	require.NoError(t, err)
	inv := &models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		RoleID:         Role(t, db, roleName).ID,
		InviterID:      1,
		Token:          token,
		Status:         models.InvitationPending,
		ExpiresAt:      expiresAt,
	}
	require.NoError(t, db.Omit("Organization", "Role").Create(inv).Error)
	return inv
}

// Subscribe puts the organization on the named plan with the given status.
func Subscribe(t *testing.T, db *gorm.DB, orgID uint64, planName string, status models.SubscriptionStatus) *models.Subscription {
	t.Helper()
	var plan models.Plan
	require.NoError(t, db.Where("name = ?", planName).First(&plan).Error)
	sub := &models.Subscription{
		OrganizationID: orgID,
		PlanID:         plan.ID,
		Status:         status,
	}
	require.NoError(t, db.Omit("Plan").Create(sub).Error)
	return sub
}

// CreateTaskChain creates a client, project and task owned by orgID.
func CreateTaskChain(t *testing.T, db *gorm.DB, orgID, creatorID uint64) (*models.Client, *models.Project, *models.Task) {
	t.Helper()
	client := &models.Client{OrganizationID: orgID, Name: "Client"}
	require.NoError(t, db.Omit("Projects").Create(client).Error)
	project := &models.Project{ClientID: client.ID, Name: "Project"}
	require.NoError(t, db.Omit("Client", "Tasks").Create(project).Error)
	task := &models.Task{ProjectID: project.ID, Title: "Task", Status: models.TaskStatusTodo, CreatorID: creatorID}
	require.NoError(t, db.Omit("Project", "Creator").Create(task).Error)
	return client, project, task
}
