package database

import (
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Paginate applies offset and limit from params
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// PendingInvitations keeps invitations that are still pending and unexpired
// at now. Only these hold a seat or block a duplicate invite.
func PendingInvitations(now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("invitations.status = ? AND invitations.expires_at > ?", models.InvitationPending, now)
	}
}

// StaleInvitations keeps pending invitations whose expiry has passed at now.
func StaleInvitations(now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("invitations.status = ? AND invitations.expires_at <= ?", models.InvitationPending, now)
	}
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
// SQLite ignores the clause and serializes writers instead.
func ForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
