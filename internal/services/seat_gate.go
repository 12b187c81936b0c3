package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/agency-api/internal/metrics"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSeatLimitExceeded = errors.New("seat limit exceeded")

// SeatLimitError reports why an admission was rejected.
type SeatLimitError struct {
	Limit          int
	CurrentMembers int64
	PendingInvites int64
}

func (e *SeatLimitError) Error() string {
	return fmt.Sprintf("Plan limit reached (%d users). You have %d members and %d pending invites.",
		e.Limit, e.CurrentMembers, e.PendingInvites)
}

func (e *SeatLimitError) Is(target error) bool {
	return target == ErrSeatLimitExceeded
}

// SeatUsage is an organization's seat accounting at one point in time.
type SeatUsage struct {
	OrganizationID uint64 `json:"organization_id"`
	PlanName       string `json:"plan_name"`
	Limit          int    `json:"limit"`
	CurrentMembers int64  `json:"current_members"`
	PendingInvites int64  `json:"pending_invites"`
	Admitted       bool   `json:"admitted"`
}

// Used is the number of seats taken by members and pending invitations.
func (u *SeatUsage) Used() int64 {
	return u.CurrentMembers + u.PendingInvites
}

func (u *SeatUsage) err() error {
	return &SeatLimitError{Limit: u.Limit, CurrentMembers: u.CurrentMembers, PendingInvites: u.PendingInvites}
}

// SeatGate decides whether an organization may admit one more member or
// invitation. Admissions go through Reserve, which holds the organization's
// row lock until the admitting transaction ends.
type SeatGate struct {
	repos           *repository.Repositories
	defaultMaxUsers int
	now             func() time.Time
	log             *zap.Logger
}

func NewSeatGate(repos *repository.Repositories, defaultMaxUsers int, log *zap.Logger) *SeatGate {
	return &SeatGate{
		repos:           repos,
		defaultMaxUsers: defaultMaxUsers,
		now:             utcNow,
		log:             log,
	}
}

// Check reports current usage without reserving anything. Admitted tells
// whether one more seat is available right now.
func (g *SeatGate) Check(ctx context.Context, organizationID uint64) (*SeatUsage, error) {
	if _, err := g.repos.Organizations.FindByID(ctx, organizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	usage, err := g.usage(ctx, g.repos, organizationID, 0)
	if err != nil {
		return nil, err
	}
	g.observe(usage)
	return usage, nil
}

// Reserve must run inside tx. It locks the organization row and admits iff
// members + pending - excluded < limit. excluded is the number of pending
// invitations the caller is about to convert, whose seats are already counted.
// On rejection it returns a *SeatLimitError.
func (g *SeatGate) Reserve(ctx context.Context, tx *repository.Repositories, organizationID uint64, excluded int64) (*SeatUsage, error) {
	if _, err := g.Lock(ctx, tx, organizationID); err != nil {
		return nil, err
	}

	usage, err := g.usage(ctx, tx, organizationID, excluded)
	if err != nil {
		return nil, err
	}
	g.observe(usage)

	if !usage.Admitted {
		g.log.Info("Seat limit reached",
			zap.Uint64("organization_id", organizationID),
			zap.Int("limit", usage.Limit),
			zap.Int64("current_members", usage.CurrentMembers),
			zap.Int64("pending_invites", usage.PendingInvites))
		return usage, usage.err()
	}
	return usage, nil
}

// Lock takes the organization's admission lock inside tx. Taking it again in
// the same transaction is a no-op.
func (g *SeatGate) Lock(ctx context.Context, tx *repository.Repositories, organizationID uint64) (*models.Organization, error) {
	org, err := tx.Organizations.LockByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to lock organization: %w", err)
	}
	return org, nil
}

// CheckAndReserve reserves a seat and runs admit in the same transaction, so
// the capacity check and the insert it guards commit together.
func (g *SeatGate) CheckAndReserve(ctx context.Context, organizationID uint64, admit func(tx *repository.Repositories) error) (*SeatUsage, error) {
	var usage *SeatUsage
	err := g.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		usage, err = g.Reserve(ctx, tx, organizationID, 0)
		if err != nil {
			return err
		}
		return admit(tx)
	})
	return usage, err
}

// EffectiveLimit returns maxUsers of the organization's active subscription
// plan, or the default when there is none.
func (g *SeatGate) EffectiveLimit(ctx context.Context, repos *repository.Repositories, organizationID uint64) (int, string, error) {
	sub, err := repos.Billing.FindSubscription(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return g.defaultMaxUsers, "", nil
		}
		return 0, "", fmt.Errorf("failed to find subscription: %w", err)
	}
	if sub.Status != models.SubscriptionActive || sub.Plan.ID == 0 {
		return g.defaultMaxUsers, "", nil
	}
	return sub.Plan.MaxUsers, sub.Plan.Name, nil
}

func (g *SeatGate) usage(ctx context.Context, repos *repository.Repositories, organizationID uint64, excluded int64) (*SeatUsage, error) {
	limit, planName, err := g.EffectiveLimit(ctx, repos, organizationID)
	if err != nil {
		return nil, err
	}

	members, err := repos.Organizations.CountMembers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	pending, err := repos.Invitations.CountPending(ctx, organizationID, g.now())
	if err != nil {
		return nil, fmt.Errorf("failed to count pending invitations: %w", err)
	}

	return &SeatUsage{
		OrganizationID: organizationID,
		PlanName:       planName,
		Limit:          limit,
		CurrentMembers: members,
		PendingInvites: pending,
		Admitted:       members+pending-excluded < int64(limit),
	}, nil
}

func (g *SeatGate) observe(usage *SeatUsage) {
	result := "admit"
	if !usage.Admitted {
		result = "reject"
	}
	metrics.SeatGateChecks.WithLabelValues(result).Inc()
}
