package services

import (
	"context"
	"sync"
	"testing"

	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/notify"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event *notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	db            *gorm.DB
	repos         *repository.Repositories
	seats         *SeatGate
	invitations   *InvitationService
	auth          *AuthService
	organizations *OrganizationService
	billing       *BillingService
	tasks         *TaskService
	publisher     *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	repos := repository.New(db)
	log := zap.NewNop()
	publisher := &recordingPublisher{}

	seats := NewSeatGate(repos, constants.DefaultMaxUsers, log)
	invitations := NewInvitationService(repos, seats, publisher, constants.DefaultInvitationTTL, log)

	return &testEnv{
		db:            db,
		repos:         repos,
		seats:         seats,
		invitations:   invitations,
		auth:          NewAuthService(repos, invitations, log),
		organizations: NewOrganizationService(repos, seats, log),
		billing:       NewBillingService(repos, seats, log),
		tasks:         NewTaskService(repos),
		publisher:     publisher,
	}
}
