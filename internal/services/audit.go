package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
)

type auditEntry struct {
	organizationID uint64
	actorID        uint64
	action         models.AuditAction
	targetType     string
	targetID       uint64
	details        map[string]interface{}
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, e auditEntry) error {
	var details string
	if len(e.details) > 0 {
		raw, err := json.Marshal(e.details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = string(raw)
	}

	entry := &models.AuditLog{
		OrganizationID: e.organizationID,
		ActorID:        e.actorID,
		Action:         e.action,
		TargetType:     e.targetType,
		TargetID:       e.targetID,
		Details:        details,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
