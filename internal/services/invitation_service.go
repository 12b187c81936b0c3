package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/agency-api/internal/metrics"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/notify"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyInvited          = errors.New("already invited")
	ErrAlreadyMember           = errors.New("already a member")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email address")
	ErrOwnerRoleRestricted     = errors.New("only an owner can grant or revoke the owner role")
)

var validate = validator.New()

type InviteOutcome string

const (
	InviteOutcomeAdded   InviteOutcome = "added"
	InviteOutcomeInvited InviteOutcome = "invited"
)

// InviteInput represents parameters for inviting or directly adding a member.
type InviteInput struct {
	InviterID      uint64
	OrganizationID uint64
	Email          string
	RoleName       string
}

// InviteResult carries the membership (added) or invitation (invited) created.
type InviteResult struct {
	Outcome    InviteOutcome
	Membership *models.Membership
	Invitation *models.Invitation
	Seats      *SeatUsage
}

// RedemptionResult lists what happened to each pending invitation found at
// registration. Deferred invitations stay pending.
type RedemptionResult struct {
	Redeemed []models.Invitation
	Deferred []models.Invitation
}

// InvitationService runs the membership admission lifecycle.
type InvitationService struct {
	repos     *repository.Repositories
	seats     *SeatGate
	publisher notify.Publisher
	ttl       time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewInvitationService(repos *repository.Repositories, seats *SeatGate, publisher notify.Publisher, ttl time.Duration, log *zap.Logger) *InvitationService {
	return &InvitationService{
		repos:     repos,
		seats:     seats,
		publisher: publisher,
		ttl:       ttl,
		now:       utcNow,
		log:       log,
	}
}

// InviteOrAdd adds an existing account to the organization directly, or
// invites an unknown email. Both paths pass the seat gate, and the duplicate
// checks, the capacity check and the insert share one locked transaction.
func (s *InvitationService) InviteOrAdd(ctx context.Context, input InviteInput) (*InviteResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	role, err := s.repos.Roles.FindByName(ctx, input.RoleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	if role.IsSystemOwner {
		if err := requireOwner(ctx, s.repos, input.OrganizationID, input.InviterID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	result := &InviteResult{}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := s.seats.Lock(ctx, tx, input.OrganizationID); err != nil {
			return err
		}

		user, err := tx.Users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find user: %w", err)
		}

		if user != nil {
			return s.addExisting(ctx, tx, input, user, role, now, result)
		}
		return s.invite(ctx, tx, input, email, role, now, result)
	})
	if err != nil {
		s.countOutcome(err)
		return nil, err
	}

	metrics.InvitationOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	s.log.Info("Membership admission",
		zap.String("outcome", string(result.Outcome)),
		zap.Uint64("organization_id", input.OrganizationID),
		zap.Uint64("inviter_id", input.InviterID),
		zap.String("role", role.Name))

	if result.Outcome == InviteOutcomeAdded {
		event := notify.NewEvent(notify.EventMemberAdded, input.OrganizationID, email)
		event.UserID = result.Membership.UserID
		event.RoleName = role.Name
		event.ActorID = input.InviterID
		s.publish(ctx, event)
	} else {
		event := notify.NewEvent(notify.EventInvitationCreated, input.OrganizationID, email)
		event.InvitationID = result.Invitation.ID
		event.RoleName = role.Name
		event.ActorID = input.InviterID
		event.Token = result.Invitation.Token
		event.ExpiresAt = result.Invitation.ExpiresAt
		s.publish(ctx, event)
	}

	return result, nil
}

func (s *InvitationService) addExisting(ctx context.Context, tx *repository.Repositories, input InviteInput, user *models.User, role *models.Role, now time.Time, result *InviteResult) error {
	if _, err := tx.Organizations.FindMember(ctx, input.OrganizationID, user.ID); err == nil {
		return ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to verify membership: %w", err)
	}

	// A pending invitation for this account already holds a seat; the direct
	// add consumes it.
	var excluded int64
	pendingInv, err := tx.Invitations.FindPending(ctx, input.OrganizationID, user.Email, now)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find pending invitation: %w", err)
	}
	if pendingInv != nil {
		excluded = 1
	}

	usage, err := s.seats.Reserve(ctx, tx, input.OrganizationID, excluded)
	if err != nil {
		return err
	}

	member := &models.Membership{
		OrganizationID: input.OrganizationID,
		UserID:         user.ID,
		RoleID:         role.ID,
		JoinedAt:       now,
	}
	if err := tx.Organizations.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if pendingInv != nil {
		if err := tx.Invitations.Delete(ctx, pendingInv.ID); err != nil {
			return fmt.Errorf("failed to delete invitation: %w", err)
		}
	}

	if err := writeAudit(ctx, tx.Audit, auditEntry{
		organizationID: input.OrganizationID,
		actorID:        input.InviterID,
		action:         models.AuditMemberAdded,
		targetType:     "user",
		targetID:       user.ID,
		details:        map[string]interface{}{"email": user.Email, "role": role.Name},
	}); err != nil {
		return err
	}

	member.Role = *role
	member.User = *user
	result.Outcome = InviteOutcomeAdded
	result.Membership = member
	result.Seats = usage
	return nil
}

func (s *InvitationService) invite(ctx context.Context, tx *repository.Repositories, input InviteInput, email string, role *models.Role, now time.Time, result *InviteResult) error {
	if _, err := tx.Invitations.FindPending(ctx, input.OrganizationID, email, now); err == nil {
		return ErrAlreadyInvited
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check pending invitations: %w", err)
	}

	usage, err := s.seats.Reserve(ctx, tx, input.OrganizationID, 0)
	if err != nil {
		return err
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return err
	}

	inv := &models.Invitation{
		OrganizationID: input.OrganizationID,
		Email:          email,
		RoleID:         role.ID,
		InviterID:      input.InviterID,
		Token:          token,
		Status:         models.InvitationPending,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := tx.Invitations.Create(ctx, inv); err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := writeAudit(ctx, tx.Audit, auditEntry{
		organizationID: input.OrganizationID,
		actorID:        input.InviterID,
		action:         models.AuditMemberInvited,
		targetType:     "invitation",
		targetID:       inv.ID,
		details:        map[string]interface{}{"email": email, "role": role.Name},
	}); err != nil {
		return err
	}

	usage.PendingInvites++
	usage.Admitted = usage.Used() < int64(usage.Limit)

	inv.Role = *role
	result.Outcome = InviteOutcomeInvited
	result.Invitation = inv
	result.Seats = usage
	return nil
}

// RedeemPendingInvitations converts every pending invitation addressed to
// user's email into a membership, re-checking each organization's seat limit
// first. An invitation whose organization is full stays pending. It must run
// inside tx; any store error aborts the whole transaction.
func (s *InvitationService) RedeemPendingInvitations(ctx context.Context, tx *repository.Repositories, user *models.User) (*RedemptionResult, error) {
	now := s.now()
	result := &RedemptionResult{}

	invs, err := tx.Invitations.ListPendingByEmail(ctx, utils.NormalizeEmail(user.Email), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}

	for _, inv := range invs {
		if _, err := tx.Organizations.FindMember(ctx, inv.OrganizationID, user.ID); err == nil {
			if err := tx.Invitations.Delete(ctx, inv.ID); err != nil {
				return nil, fmt.Errorf("failed to delete invitation: %w", err)
			}
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to verify membership: %w", err)
		}

		if _, err := s.seats.Reserve(ctx, tx, inv.OrganizationID, 1); err != nil {
			if errors.Is(err, ErrSeatLimitExceeded) || errors.Is(err, ErrOrganizationNotFound) {
				s.log.Info("Invitation left pending",
					zap.Uint64("invitation_id", inv.ID),
					zap.Uint64("organization_id", inv.OrganizationID),
					zap.String("reason", err.Error()))
				result.Deferred = append(result.Deferred, inv)
				continue
			}
			return nil, err
		}

		if err := s.admit(ctx, tx, &inv, user, now); err != nil {
			return nil, err
		}
		result.Redeemed = append(result.Redeemed, inv)
	}

	return result, nil
}

// Accept turns the invitation identified by token into a membership for
// user. The invitation must be pending, unexpired and addressed to user.
func (s *InvitationService) Accept(ctx context.Context, user *models.User, token string) (*models.Membership, error) {
	now := s.now()
	var member *models.Membership
	alreadyMember := false

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		inv, err := tx.Invitations.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to find invitation: %w", err)
		}

		if _, err := s.seats.Lock(ctx, tx, inv.OrganizationID); err != nil {
			if errors.Is(err, ErrOrganizationNotFound) {
				return ErrInvitationNotFound
			}
			return err
		}

		// Re-read under the lock so concurrent accepts of one token serialize.
		inv, err = tx.Invitations.FindByID(ctx, inv.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to find invitation: %w", err)
		}
		if inv.Status == models.InvitationExpired || (inv.Status == models.InvitationPending && inv.IsExpired(now)) {
			return ErrInvitationExpired
		}
		if !inv.IsRedeemable(now) {
			return ErrInvitationNotFound
		}
		if utils.NormalizeEmail(user.Email) != inv.Email {
			return ErrInvitationEmailMismatch
		}

		// A member holding a stale invitation releases its seat, as redemption does.
		if _, err := tx.Organizations.FindMember(ctx, inv.OrganizationID, user.ID); err == nil {
			if err := tx.Invitations.Delete(ctx, inv.ID); err != nil {
				return fmt.Errorf("failed to delete invitation: %w", err)
			}
			alreadyMember = true
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to verify membership: %w", err)
		}

		if _, err := s.seats.Reserve(ctx, tx, inv.OrganizationID, 1); err != nil {
			return err
		}

		if err := s.admit(ctx, tx, inv, user, now); err != nil {
			return err
		}

		member = &models.Membership{
			OrganizationID: inv.OrganizationID,
			UserID:         user.ID,
			RoleID:         inv.RoleID,
			JoinedAt:       now,
			Role:           inv.Role,
		}
		return nil
	})
	if err == nil && alreadyMember {
		err = ErrAlreadyMember
	}
	if err != nil {
		s.countOutcome(err)
		return nil, err
	}

	metrics.InvitationOutcomes.WithLabelValues("accepted").Inc()
	s.publishRedeemed(ctx, user, member.OrganizationID, member.Role.Name)
	return member, nil
}

// admit creates the membership for inv and deletes it.
func (s *InvitationService) admit(ctx context.Context, tx *repository.Repositories, inv *models.Invitation, user *models.User, now time.Time) error {
	member := &models.Membership{
		OrganizationID: inv.OrganizationID,
		UserID:         user.ID,
		RoleID:         inv.RoleID,
		JoinedAt:       now,
	}
	if err := tx.Organizations.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if err := tx.Invitations.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	return writeAudit(ctx, tx.Audit, auditEntry{
		organizationID: inv.OrganizationID,
		actorID:        user.ID,
		action:         models.AuditInvitationAccepted,
		targetType:     "invitation",
		targetID:       inv.ID,
		details:        map[string]interface{}{"email": inv.Email, "inviter_id": inv.InviterID},
	})
}

// PublishRedemption emits events for invitations redeemed at registration.
// Call it once the registration transaction has committed.
func (s *InvitationService) PublishRedemption(ctx context.Context, user *models.User, result *RedemptionResult) {
	for _, inv := range result.Redeemed {
		metrics.InvitationOutcomes.WithLabelValues("redeemed").Inc()
		s.publishRedeemed(ctx, user, inv.OrganizationID, inv.Role.Name)
	}
	for range result.Deferred {
		metrics.InvitationOutcomes.WithLabelValues("deferred").Inc()
	}
}

// ListPending returns the organization's pending, unexpired invitations.
func (s *InvitationService) ListPending(ctx context.Context, organizationID uint64) ([]models.Invitation, error) {
	invs, err := s.repos.Invitations.ListPendingByOrganization(ctx, organizationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

// Revoke withdraws a pending invitation and frees its seat.
func (s *InvitationService) Revoke(ctx context.Context, actorID, organizationID, invitationID uint64) error {
	var inv *models.Invitation
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		inv, err = tx.Invitations.FindByID(ctx, invitationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to find invitation: %w", err)
		}
		if inv.OrganizationID != organizationID || inv.Status != models.InvitationPending {
			return ErrInvitationNotFound
		}

		if err := tx.Invitations.UpdateStatus(ctx, inv.ID, models.InvitationRevoked); err != nil {
			return fmt.Errorf("failed to revoke invitation: %w", err)
		}

		return writeAudit(ctx, tx.Audit, auditEntry{
			organizationID: organizationID,
			actorID:        actorID,
			action:         models.AuditInvitationRevoked,
			targetType:     "invitation",
			targetID:       inv.ID,
			details:        map[string]interface{}{"email": inv.Email},
		})
	})
	if err != nil {
		return err
	}

	metrics.InvitationOutcomes.WithLabelValues("revoked").Inc()
	event := notify.NewEvent(notify.EventInvitationRevoked, organizationID, inv.Email)
	event.InvitationID = inv.ID
	event.ActorID = actorID
	s.publish(ctx, event)
	return nil
}

func (s *InvitationService) publishRedeemed(ctx context.Context, user *models.User, organizationID uint64, roleName string) {
	event := notify.NewEvent(notify.EventInvitationRedeemed, organizationID, user.Email)
	event.UserID = user.ID
	event.RoleName = roleName
	s.publish(ctx, event)
}

// publish never fails the caller: the membership change has already committed.
func (s *InvitationService) publish(ctx context.Context, event *notify.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish membership event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func (s *InvitationService) countOutcome(err error) {
	outcome := "error"
	switch {
	case errors.Is(err, ErrSeatLimitExceeded):
		outcome = "seat_limit"
	case errors.Is(err, ErrAlreadyInvited):
		outcome = "already_invited"
	case errors.Is(err, ErrAlreadyMember):
		outcome = "already_member"
	case errors.Is(err, ErrInvitationExpired):
		outcome = "expired"
	case errors.Is(err, ErrInvitationNotFound), errors.Is(err, ErrInvitationEmailMismatch), errors.Is(err, ErrOrganizationNotFound):
		outcome = "rejected"
	}
	metrics.InvitationOutcomes.WithLabelValues(outcome).Inc()
}

func normalizeEmail(raw string) (string, error) {
	email := utils.NormalizeEmail(raw)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// requireOwner allows owners of the organization and super-admins.
func requireOwner(ctx context.Context, repos *repository.Repositories, organizationID, actorID uint64) error {
	member, err := repos.Organizations.FindMember(ctx, organizationID, actorID)
	if err == nil && member.Role.IsSystemOwner {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load membership: %w", err)
	}

	actor, err := repos.Users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOwnerRoleRestricted
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if actor.IsSuperAdmin {
		return nil
	}
	return ErrOwnerRoleRestricted
}
