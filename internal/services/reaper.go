package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/agency-api/internal/metrics"
	"github.com/yukikurage/agency-api/internal/repository"
	"go.uber.org/zap"
)

// InvitationReaper marks pending invitations past their expiry as expired.
// Expired invitations are already ignored by every read, so the reaper only
// keeps the stored status honest.
type InvitationReaper struct {
	repos    *repository.Repositories
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewInvitationReaper(repos *repository.Repositories, interval time.Duration, log *zap.Logger) *InvitationReaper {
	return &InvitationReaper{
		repos:    repos,
		interval: interval,
		now:      utcNow,
		log:      log,
	}
}

// RunOnce expires stale invitations and returns how many it touched.
func (r *InvitationReaper) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.repos.Invitations.ExpireStale(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	if n > 0 {
		metrics.InvitationOutcomes.WithLabelValues("expired").Add(float64(n))
		r.log.Info("Expired stale invitations", zap.Int64("count", n))
	}
	return n, nil
}

// Run calls RunOnce every interval until ctx is done.
func (r *InvitationReaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info("Invitation reaper disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error("Invitation reaper run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
