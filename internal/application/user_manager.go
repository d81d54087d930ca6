package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vculp/identity-server/internal/domain"
	apperrors "github.com/vculp/identity-server/internal/domain/errors"
	"github.com/vculp/identity-server/internal/infrastructure/password"
	"go.uber.org/zap"
)

// UserManager implements the membership operations used by the login page
// and the user administration tool.
type UserManager struct {
	userRepo domain.UserRepository
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserManager(userRepo domain.UserRepository, logger *zap.Logger) *UserManager {
	return &UserManager{
		userRepo: userRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateUser validates the request, stores the account and attaches its
// claims. When the claims cannot be stored the user is returned together with
// an error wrapping domain.ErrClaimsNotAdded.
func (m *UserManager) CreateUser(ctx context.Context, req domain.CreateUserRequest, pw string) (*domain.User, error) {
	if err := m.validateRequest(req); err != nil {
		return nil, err
	}
	if err := password.Validate(pw); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if _, err := m.userRepo.FindByUserName(ctx, req.Email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := password.HashPassword(pw)
	if err != nil {
		m.logger.Error("failed to hash password", zap.Error(err))
		return nil, domain.ErrInternal
	}

	user := domain.NewUser(req.Email)
	user.PasswordHash = hash
	if err := m.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := m.userRepo.AddClaims(ctx, user.ID, req.Claims()); err != nil {
		m.logger.Error("failed to add claims", zap.String("user_id", user.ID.String()), zap.Error(err))
		return user, fmt.Errorf("%w: %v", domain.ErrClaimsNotAdded, err)
	}

	m.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("type", req.Type.String()))
	return user, nil
}

func (m *UserManager) validateRequest(req domain.CreateUserRequest) error {
	err := m.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError(err.Error())
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return apperrors.NewValidationError("The email address is required.")
		}
		return apperrors.NewValidationError("The email address is not in a valid format.")
	case "Name":
		return apperrors.NewValidationError("The name is required.")
	case "Type":
		return apperrors.NewValidationError("The user type must be Admin or Standard User.")
	case "ExternalUserID":
		return apperrors.NewValidationError("Admin users require an external user id.")
	default:
		return apperrors.NewValidationError(fe.Error())
	}
}

// FindByName looks a user up by user name
func (m *UserManager) FindByName(ctx context.Context, userName string) (*domain.User, error) {
	return m.userRepo.FindByUserName(ctx, userName)
}

// ResetPassword replaces the password of an existing user
func (m *UserManager) ResetPassword(ctx context.Context, userName, newPassword string) error {
	user, err := m.userRepo.FindByUserName(ctx, userName)
	if err != nil {
		return err
	}

	if err := password.Validate(newPassword); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	hash, err := password.HashPassword(newPassword)
	if err != nil {
		m.logger.Error("failed to hash password", zap.Error(err))
		return domain.ErrInternal
	}

	if err := m.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	m.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// CheckPassword verifies a sign-in attempt. Failed attempts count towards a
// lockout when the user has lockout enabled; a successful attempt clears the
// counter. The user's claims are returned on success.
func (m *UserManager) CheckPassword(ctx context.Context, userName, pw string) (*domain.User, []domain.Claim, error) {
	user, err := m.userRepo.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	now := m.now().UTC()
	if user.IsLockedOut(now) {
		return nil, nil, domain.ErrUserLockedOut
	}

	if err := password.CheckPassword(pw, user.PasswordHash); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			m.logger.Error("failed to compare password hash", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return nil, nil, m.recordFailure(ctx, user, now)
	}

	if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
		if err := m.userRepo.ResetAccessFailed(ctx, user.ID); err != nil {
			return nil, nil, err
		}
		user.AccessFailedCount = 0
		user.LockoutEnd = nil
	}

	claims, err := m.userRepo.ListClaims(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (m *UserManager) recordFailure(ctx context.Context, user *domain.User, now time.Time) error {
	if !user.LockoutEnabled {
		return domain.ErrInvalidCredentials
	}

	end := now.Add(domain.DefaultLockoutTimeSpan)
	lockedOut, err := m.userRepo.RecordFailedAccess(ctx, user.ID, domain.MaxFailedAccessAttempts, end)
	if err != nil {
		return err
	}
	if !lockedOut {
		return domain.ErrInvalidCredentials
	}
	m.logger.Warn("user locked out", zap.String("user_id", user.ID.String()), zap.Time("until", end))
	return domain.ErrUserLockedOut
}
