package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes the hot authorization and seat
// counting queries rely on. Single-column indexes come from struct tags.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Membership lookup by user (the primary key covers organization_id first)
		{"memberships", "idx_memberships_user_org", "user_id, organization_id"},

		// Seat counting: pending, unexpired invitations per organization
		{"invitations", "idx_invitations_org_status_expiry", "organization_id, status, expires_at"},

		// Redemption scan by email
		{"invitations", "idx_invitations_email_status", "email, status"},

		// Ownership chain walk
		{"projects", "idx_projects_client_id_id", "client_id, id"},
		{"tasks", "idx_tasks_project_id_status", "project_id, status"},

		// Audit listing
		{"audit_logs", "idx_audit_logs_org_created", "organization_id, created_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
