package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrPlanTooSmall = errors.New("plan allows fewer users than the organization has members")
)

const billingPeriod = 30 * 24 * time.Hour

// BillingOverview is an organization's subscription state and seat usage.
// Subscription is nil when the organization is on the implicit default plan.
type BillingOverview struct {
	Subscription *models.Subscription
	Plans        []models.Plan
	Seats        *SeatUsage
}

// BillingService manages plan subscriptions. Payment collection is handled
// by the external provider; this service only records the resulting plan.
type BillingService struct {
	repos *repository.Repositories
	seats *SeatGate
	now   func() time.Time
	log   *zap.Logger
}

func NewBillingService(repos *repository.Repositories, seats *SeatGate, log *zap.Logger) *BillingService {
	return &BillingService{
		repos: repos,
		seats: seats,
		now:   utcNow,
		log:   log,
	}
}

// Overview returns the subscription, the plan catalog and current seat usage.
func (s *BillingService) Overview(ctx context.Context, organizationID uint64) (*BillingOverview, error) {
	seats, err := s.seats.Check(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	overview := &BillingOverview{Seats: seats}

	sub, err := s.repos.Billing.FindSubscription(ctx, organizationID)
	if err == nil {
		overview.Subscription = sub
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	plans, err := s.repos.Billing.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	overview.Plans = plans

	return overview, nil
}

// ChangePlan moves the organization to planID with an active subscription.
// A plan smaller than the current member count is refused; pending
// invitations beyond the new limit stay pending and are gated at redemption.
func (s *BillingService) ChangePlan(ctx context.Context, actorID, organizationID, planID uint64) (*models.Subscription, error) {
	var sub *models.Subscription

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := s.seats.Lock(ctx, tx, organizationID); err != nil {
			return err
		}

		plan, err := tx.Billing.FindPlanByID(ctx, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return fmt.Errorf("failed to find plan: %w", err)
		}

		members, err := tx.Organizations.CountMembers(ctx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if members > int64(plan.MaxUsers) {
			return ErrPlanTooSmall
		}

		previous := ""
		existing, err := tx.Billing.FindSubscription(ctx, organizationID)
		if err == nil {
			previous = existing.Plan.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find subscription: %w", err)
		}

		now := s.now()
		end := now.Add(billingPeriod)
		sub = &models.Subscription{
			OrganizationID:     organizationID,
			PlanID:             plan.ID,
			Status:             models.SubscriptionActive,
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &end,
		}
		if existing != nil {
			sub.ExternalID = existing.ExternalID
		}
		if err := tx.Billing.SaveSubscription(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		sub, err = tx.Billing.FindSubscription(ctx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to reload subscription: %w", err)
		}

		return writeAudit(ctx, tx.Audit, auditEntry{
			organizationID: organizationID,
			actorID:        actorID,
			action:         models.AuditPlanChanged,
			targetType:     "plan",
			targetID:       plan.ID,
			details:        map[string]interface{}{"from": previous, "to": plan.Name},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Plan changed",
		zap.Uint64("organization_id", organizationID),
		zap.String("plan", sub.Plan.Name))
	return sub, nil
}
