package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrganizationName    = errors.New("organization name cannot be empty")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the organization")
	ErrCannotChangeOwnRole        = errors.New("cannot change your own role")
	ErrOrganizationMemberNotFound = errors.New("organization member not found")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	repos *repository.Repositories
	seats *SeatGate
	log   *zap.Logger
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(repos *repository.Repositories, seats *SeatGate, log *zap.Logger) *OrganizationService {
	return &OrganizationService{
		repos: repos,
		seats: seats,
		log:   log,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name    string
	OwnerID uint64
}

// CreateOrganization creates a new organization and assigns the owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}

	slug, err := utils.GenerateSlug(name)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{Name: name, Slug: slug}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return createOrganizationWithOwner(ctx, tx, org, input.OwnerID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Organization created", zap.Uint64("organization_id", org.ID), zap.Uint64("owner_id", input.OwnerID))
	return org, nil
}

// ListOrganizationsForUser returns organizations the user belongs to.
func (s *OrganizationService) ListOrganizationsForUser(ctx context.Context, userID uint64) ([]models.Membership, error) {
	memberships, err := s.repos.Organizations.ListMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return memberships, nil
}

// GetOrganization returns an organization.
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.repos.Organizations.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// UpdateOrganizationName updates an organization's name.
func (s *OrganizationService) UpdateOrganizationName(ctx context.Context, orgID uint64, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}

	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	org.Name = name
	if err := s.repos.Organizations.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes an organization and every tenant-scoped row.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID uint64) error {
	// Ensure organization exists
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return err
	}

	if err := s.repos.Organizations.Delete(ctx, orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	s.log.Info("Organization deleted", zap.Uint64("organization_id", orgID))
	return nil
}

// ListMembers returns all members of an organization with user and role.
func (s *OrganizationService) ListMembers(ctx context.Context, orgID uint64) ([]models.Membership, error) {
	members, err := s.repos.Organizations.ListMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return members, nil
}

// Seats reports the organization's current seat usage.
func (s *OrganizationService) Seats(ctx context.Context, orgID uint64) (*SeatUsage, error) {
	return s.seats.Check(ctx, orgID)
}

// RemoveMember removes a member from the organization. Removing an Owner
// takes an Owner.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, actorID, targetID uint64) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		member, err := tx.Organizations.FindMember(ctx, orgID, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationMemberNotFound
			}
			return fmt.Errorf("failed to find organization member: %w", err)
		}

		if member.Role.IsSystemOwner {
			if err := requireOwner(ctx, tx, orgID, actorID); err != nil {
				return err
			}
		}

		if err := tx.Organizations.RemoveMember(ctx, orgID, targetID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}

		return writeAudit(ctx, tx.Audit, auditEntry{
			organizationID: orgID,
			actorID:        actorID,
			action:         models.AuditMemberRemoved,
			targetType:     "user",
			targetID:       targetID,
			details:        map[string]interface{}{"role": member.Role.Name},
		})
	})
}

// ChangeMemberRole assigns roleName to a member. Granting or taking away the
// Owner role takes an Owner.
func (s *OrganizationService) ChangeMemberRole(ctx context.Context, orgID, actorID, targetID uint64, roleName string) (*models.Membership, error) {
	if targetID == actorID {
		return nil, ErrCannotChangeOwnRole
	}

	var updated *models.Membership
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		role, err := tx.Roles.FindByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("failed to find role: %w", err)
		}

		member, err := tx.Organizations.FindMember(ctx, orgID, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationMemberNotFound
			}
			return fmt.Errorf("failed to find organization member: %w", err)
		}

		if role.IsSystemOwner || member.Role.IsSystemOwner {
			if err := requireOwner(ctx, tx, orgID, actorID); err != nil {
				return err
			}
		}

		if err := tx.Organizations.UpdateMemberRole(ctx, orgID, targetID, role.ID); err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}

		if err := writeAudit(ctx, tx.Audit, auditEntry{
			organizationID: orgID,
			actorID:        actorID,
			action:         models.AuditRoleChanged,
			targetType:     "user",
			targetID:       targetID,
			details:        map[string]interface{}{"from": member.Role.Name, "to": role.Name},
		}); err != nil {
			return err
		}

		member.RoleID = role.ID
		member.Role = *role
		updated = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListAuditLog returns the organization's audit trail, newest first.
func (s *OrganizationService) ListAuditLog(ctx context.Context, orgID uint64, page utils.PaginationParams) ([]models.AuditLog, int64, error) {
	entries, total, err := s.repos.Audit.ListByOrganization(ctx, orgID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, total, nil
}

// ListRoles returns the global role catalog with each role's permission keys.
func (s *OrganizationService) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := s.repos.Roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		keys, err := s.repos.Roles.PermissionKeys(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load role permissions: %w", err)
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: keys})
	}
	return out, nil
}

// RoleWithPermissions pairs a role with its permission keys.
type RoleWithPermissions struct {
	Role        models.Role
	Permissions []string
}
