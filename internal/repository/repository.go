package repository

import (
	"context"
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/utils"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// OrganizationRepository defines the interface for organization and membership data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// LockByID reads an organization with a row lock held until the
	// surrounding transaction ends
	LockByID(ctx context.Context, id uint64) (*models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization and all tenant-scoped data
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to an organization
	AddMember(ctx context.Context, member *models.Membership) error

	// RemoveMember removes a member from an organization
	RemoveMember(ctx context.Context, organizationID, userID uint64) error

	// FindMember finds a specific membership with its role
	FindMember(ctx context.Context, organizationID, userID uint64) (*models.Membership, error)

	// UpdateMemberRole changes a member's role
	UpdateMemberRole(ctx context.Context, organizationID, userID, roleID uint64) error

	// ListMembershipsByUserID lists all organizations a user is a member of
	ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.Membership, error)

	// ListMembers lists all members of an organization
	ListMembers(ctx context.Context, organizationID uint64) ([]models.Membership, error)

	// CountMembers counts the memberships of an organization
	CountMembers(ctx context.Context, organizationID uint64) (int64, error)
}

// RoleRepository gives read-only access to role and permission reference data
type RoleRepository interface {
	FindByID(ctx context.Context, id uint64) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)

	// FindSystemOwner returns the role flagged IsSystemOwner
	FindSystemOwner(ctx context.Context) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)

	// PermissionKeys returns the keys reachable from the role through role_permissions
	PermissionKeys(ctx context.Context, roleID uint64) ([]string, error)
}

// InvitationRepository defines the interface for invitation data access.
// Methods taking now only consider invitations that are pending and unexpired at now.
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByID(ctx context.Context, id uint64) (*models.Invitation, error)
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	FindPending(ctx context.Context, organizationID uint64, email string, now time.Time) (*models.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error)
	ListPendingByOrganization(ctx context.Context, organizationID uint64, now time.Time) ([]models.Invitation, error)
	CountPending(ctx context.Context, organizationID uint64, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id uint64, status models.InvitationStatus) error
	Delete(ctx context.Context, id uint64) error

	// ExpireStale marks pending invitations past their expiry as expired
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// BillingRepository defines the interface for plan and subscription data access
type BillingRepository interface {
	FindSubscription(ctx context.Context, organizationID uint64) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	FindPlanByID(ctx context.Context, id uint64) (*models.Plan, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id uint64) (*models.Client, error)
	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Client, error)

	// OrganizationID resolves the owning organization of a client
	OrganizationID(ctx context.Context, clientID uint64) (uint64, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uint64) (*models.Project, error)
	ListByClient(ctx context.Context, clientID uint64) ([]models.Project, error)

	// OrganizationID resolves project -> client -> organization
	OrganizationID(ctx context.Context, projectID uint64) (uint64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error

	// OrganizationID resolves task -> project -> client -> organization
	OrganizationID(ctx context.Context, taskID uint64) (uint64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID uint64
	Status    *models.TaskStatus
	Page      utils.PaginationParams
}

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByOrganization(ctx context.Context, organizationID uint64, page utils.PaginationParams) ([]models.AuditLog, int64, error)
}

// Repositories bundles every repository over the same connection or transaction
type Repositories struct {
	db            *gorm.DB
	Users         UserRepository
	Organizations OrganizationRepository
	Roles         RoleRepository
	Invitations   InvitationRepository
	Billing       BillingRepository
	Clients       ClientRepository
	Projects      ProjectRepository
	Tasks         TaskRepository
	Audit         AuditRepository
}

// New creates the repository bundle over db
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		Roles:         NewRoleRepository(db),
		Invitations:   NewInvitationRepository(db),
		Billing:       NewBillingRepository(db),
		Clients:       NewClientRepository(db),
		Projects:      NewProjectRepository(db),
		Tasks:         NewTaskRepository(db),
		Audit:         NewAuditRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
