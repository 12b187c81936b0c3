package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/agency-api/internal/metrics"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrMissingContext         = errors.New("organization context missing")
	ErrNotAMember             = errors.New("not a member of this organization")
	ErrInsufficientPermission = errors.New("insufficient permission")
)

// Grant explains why a request was allowed.
type Grant string

const (
	GrantSuperAdmin Grant = "super_admin"
	GrantOwner      Grant = "owner"
	GrantPermission Grant = "permission"
)

// Decision is the result of a successful authorization.
type Decision struct {
	UserID         uint64
	OrganizationID uint64
	RoleID         uint64
	Permission     string
	Grant          Grant
}

// Resolver answers "may this user do this in this organization". Every call
// reads membership and permissions fresh from the store.
type Resolver struct {
	orgs     repository.OrganizationRepository
	roles    repository.RoleRepository
	clients  repository.ClientRepository
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	log      *zap.Logger
}

// NewResolver creates a Resolver over repos.
func NewResolver(repos *repository.Repositories, log *zap.Logger) *Resolver {
	return &Resolver{
		orgs:     repos.Organizations,
		roles:    repos.Roles,
		clients:  repos.Clients,
		projects: repos.Projects,
		tasks:    repos.Tasks,
		log:      log,
	}
}

// Authorize allows or denies user performing permission within the
// organization ref resolves to. A denial is one of the Err* sentinels of this
// package; any other error is a store failure.
func (r *Resolver) Authorize(ctx context.Context, user *models.User, ref ResourceRef, permission string) (*Decision, error) {
	decision, err := r.authorize(ctx, user, ref, permission)
	r.observe(user, ref, permission, decision, err)
	return decision, err
}

func (r *Resolver) authorize(ctx context.Context, user *models.User, ref ResourceRef, permission string) (*Decision, error) {
	if user == nil || user.ID == 0 {
		return nil, ErrUnauthenticated
	}

	if user.IsSuperAdmin {
		d := &Decision{UserID: user.ID, Permission: permission, Grant: GrantSuperAdmin}
		if ref.Kind == KindOrganization {
			d.OrganizationID = ref.ID
		}
		return d, nil
	}

	orgID, err := r.ResolveOrganization(ctx, ref)
	if err != nil {
		return nil, err
	}

	member, err := r.orgs.FindMember(ctx, orgID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	decision := &Decision{
		UserID:         user.ID,
		OrganizationID: orgID,
		RoleID:         member.RoleID,
		Permission:     permission,
	}

	// Owner holds every permission even when its links are incomplete.
	if member.Role.IsSystemOwner {
		decision.Grant = GrantOwner
		return decision, nil
	}

	keys, err := r.roles.PermissionKeys(ctx, member.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	for _, key := range keys {
		if key == permission {
			decision.Grant = GrantPermission
			return decision, nil
		}
	}

	return nil, ErrInsufficientPermission
}

// ResolveOrganization returns the id of the organization ref belongs to,
// walking task -> project -> client -> organization as needed. It returns
// ErrMissingContext when the ref is empty or points at nothing.
func (r *Resolver) ResolveOrganization(ctx context.Context, ref ResourceRef) (uint64, error) {
	if ref.IsZero() {
		return 0, ErrMissingContext
	}

	var (
		orgID uint64
		err   error
	)
	switch ref.Kind {
	case KindOrganization:
		return ref.ID, nil
	case KindClient:
		orgID, err = r.clients.OrganizationID(ctx, ref.ID)
	case KindProject:
		orgID, err = r.projects.OrganizationID(ctx, ref.ID)
	case KindTask:
		orgID, err = r.tasks.OrganizationID(ctx, ref.ID)
	default:
		return 0, ErrMissingContext
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMissingContext
		}
		return 0, fmt.Errorf("failed to resolve organization for %s: %w", ref, err)
	}
	return orgID, nil
}

func (r *Resolver) observe(user *models.User, ref ResourceRef, permission string, d *Decision, err error) {
	outcome := "allow"
	switch {
	case err == nil:
		if d.Grant != GrantPermission {
			outcome = "allow_" + string(d.Grant)
		}
	case errors.Is(err, ErrUnauthenticated):
		outcome = "deny_unauthenticated"
	case errors.Is(err, ErrMissingContext):
		outcome = "deny_missing_context"
	case errors.Is(err, ErrNotAMember):
		outcome = "deny_not_member"
	case errors.Is(err, ErrInsufficientPermission):
		outcome = "deny_insufficient"
	default:
		outcome = "error"
	}
	metrics.AuthzDecisions.WithLabelValues(permission, outcome).Inc()

	var userID uint64
	if user != nil {
		userID = user.ID
	}
	fields := []zap.Field{
		zap.Uint64("user_id", userID),
		zap.Stringer("resource", ref),
		zap.String("permission", permission),
		zap.String("outcome", outcome),
	}
	if outcome == "error" {
		r.log.Error("Authorization lookup failed", append(fields, zap.Error(err))...)
		return
	}
	r.log.Debug("Authorization decision", fields...)
}
