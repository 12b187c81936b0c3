package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/agency-api/internal/constants"
	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/repository"
	"github.com/yukikurage/agency-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	repos       *repository.Repositories
	invitations *InvitationService
	log         *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repos *repository.Repositories, invitations *InvitationService, log *zap.Logger) *AuthService {
	return &AuthService{
		repos:       repos,
		invitations: invitations,
		log:         log,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email            string
	Password         string
	Name             string
	OrganizationName string
}

// RegisterResult is everything registration created.
type RegisterResult struct {
	User         *models.User
	Organization *models.Organization
	Redemption   *RedemptionResult
}

// Register creates a user, their organization with them as Owner, and
// redeems any pending invitations addressed to their email. All of it
// commits together or not at all.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.repos.Users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	orgName := strings.TrimSpace(input.OrganizationName)
	if orgName == "" {
		orgName = fmt.Sprintf("%s's Agency", name)
	}

	slug, err := utils.GenerateSlug(orgName)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
	}
	org := &models.Organization{
		Name: orgName,
		Slug: slug,
	}
	result := &RegisterResult{User: user, Organization: org}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := createOrganizationWithOwner(ctx, tx, org, user.ID); err != nil {
			return err
		}

		redemption, err := s.invitations.RedeemPendingInvitations(ctx, tx, user)
		if err != nil {
			return err
		}
		result.Redemption = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("User registered",
		zap.Uint64("user_id", user.ID),
		zap.Uint64("organization_id", org.ID),
		zap.Int("invitations_redeemed", len(result.Redemption.Redeemed)),
		zap.Int("invitations_deferred", len(result.Redemption.Deferred)))
	s.invitations.PublishRedemption(ctx, user, result.Redemption)

	return result, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.repos.Users.FindByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// createOrganizationWithOwner inserts org and makes ownerID its Owner.
func createOrganizationWithOwner(ctx context.Context, tx *repository.Repositories, org *models.Organization, ownerID uint64) error {
	ownerRole, err := tx.Roles.FindSystemOwner(ctx)
	if err != nil {
		return fmt.Errorf("failed to find owner role: %w", err)
	}

	if err := tx.Organizations.Create(ctx, org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	member := &models.Membership{
		OrganizationID: org.ID,
		UserID:         ownerID,
		RoleID:         ownerRole.ID,
		JoinedAt:       utcNow(),
	}
	if err := tx.Organizations.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add owner to organization: %w", err)
	}
	return nil
}
