package database

import (
	"fmt"

	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionVocabulary is the seeded permission set.
var PermissionVocabulary = []models.Permission{
	{Key: constants.PermOrgRead, Description: "View organization details"},
	{Key: constants.PermOrgWrite, Description: "Edit organization, clients and projects"},
	{Key: constants.PermOrgDelete, Description: "Delete the organization"},
	{Key: constants.PermBillingRead, Description: "View subscription and plan"},
	{Key: constants.PermBillingWrite, Description: "Change subscription plan"},
	{Key: constants.PermUsersRead, Description: "List members and invitations"},
	{Key: constants.PermUsersInvite, Description: "Invite or add members"},
	{Key: constants.PermUsersRemove, Description: "Remove members"},
	{Key: constants.PermRolesRead, Description: "View roles"},
	{Key: constants.PermRolesAssign, Description: "Change member roles"},
	{Key: constants.PermTasksWrite, Description: "Create and edit tasks"},
}

type roleSeed struct {
	role        models.Role
	permissions []string
}

func systemRoles() []roleSeed {
	all := make([]string, len(PermissionVocabulary))
	for i, p := range PermissionVocabulary {
		all[i] = p.Key
	}

	return []roleSeed{
		{
			role:        models.Role{Name: constants.RoleNameOwner, Description: "Full control", IsSystem: true, IsSystemOwner: true},
			permissions: all,
		},
		{
			role: models.Role{Name: constants.RoleNameAdmin, Description: "Manage members and settings", IsSystem: true},
			permissions: []string{
				constants.PermOrgRead, constants.PermOrgWrite,
				constants.PermBillingRead,
				constants.PermUsersRead, constants.PermUsersInvite, constants.PermUsersRemove,
				constants.PermRolesRead, constants.PermRolesAssign,
				constants.PermTasksWrite,
			},
		},
		{
			role: models.Role{Name: constants.RoleNameMember, Description: "Work on client projects", IsSystem: true},
			permissions: []string{
				constants.PermOrgRead, constants.PermUsersRead, constants.PermRolesRead, constants.PermTasksWrite,
			},
		},
	}
}

// DefaultPlans are the plans offered by the billing provider.
var DefaultPlans = []models.Plan{
	{Name: "Free", MaxUsers: constants.DefaultMaxUsers},
	{Name: "Pro", MaxUsers: 10, PriceID: "price_pro_monthly"},
	{Name: "Agency", MaxUsers: 50, PriceID: "price_agency_monthly"},
}

// Seed loads permissions, system roles, their links and plans. It is
// idempotent and never modifies rows that already exist.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]uint64, len(PermissionVocabulary))
		for _, p := range PermissionVocabulary {
			perm := p
			if err := tx.Where(models.Permission{Key: perm.Key}).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", p.Key, err)
			}
			permIDs[perm.Key] = perm.ID
		}

		for _, seed := range systemRoles() {
			role := seed.role
			if err := tx.Where(models.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", seed.role.Name, err)
			}

			links := make([]models.RolePermission, 0, len(seed.permissions))
			for _, key := range seed.permissions {
				links = append(links, models.RolePermission{RoleID: role.ID, PermissionID: permIDs[key]})
			}
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("failed to seed permissions for role %s: %w", role.Name, err)
			}
		}

		for _, p := range DefaultPlans {
			plan := p
			if err := tx.Where(models.Plan{Name: plan.Name}).Attrs(plan).FirstOrCreate(&plan).Error; err != nil {
				return fmt.Errorf("failed to seed plan %s: %w", p.Name, err)
			}
		}

		return nil
	})
}
