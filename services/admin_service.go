package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"golang.org/x/crypto/bcrypt"
)

const tempPasswordLength = 12

type AdminService interface {
	// ProvisionAccount создаёт учётную запись с временным паролем и
	// отправляет его на почту. Пользователь обязан сменить пароль при
	// первом входе.
	ProvisionAccount(ctx context.Context, input ProvisionAccountInput) (*models.User, error)
	// ChangeRole меняет глобальную роль пользователя. Снятие с роли captain
	// запускает преемственность во всех его командах в одной транзакции.
	ChangeRole(ctx context.Context, userID int, role models.UserRole) error
	// SetActive активирует или деактивирует учётную запись. Деактивация
	// капитана также запускает преемственность.
	SetActive(ctx context.Context, userID int, active bool) error
}

type ProvisionAccountInput struct {
	FirstName string          `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string          `json:"last_name" validate:"max=100"`
	Email     string          `json:"email" validate:"required,email"`
	Role      models.UserRole `json:"role" validate:"required,oneof=volunteer captain admin"`
}

type adminService struct {
	db          *sql.DB
	userRepo    repositories.UserRepository
	teamService TeamService
	email       *EmailService
	logger      *slog.Logger
}

func NewAdminService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	teamService TeamService,
	email *EmailService,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		db:          db,
		userRepo:    userRepo,
		teamService: teamService,
		email:       email,
		logger:      logger,
	}
}

func (s *adminService) ProvisionAccount(ctx context.Context, input ProvisionAccountInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	tempPassword, err := generateSecureToken(tempPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
		IsActive:     true,
		IsFirstLogin: true,
		// Учётная запись создана администратором, подтверждение почты не требуется.
		EmailConfirmed: true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}

	if s.email != nil {
		if err := s.email.SendProvisionedCredentialsEmail(user.Email, tempPassword); err != nil {
			s.logger.ErrorContext(ctx, "failed to send provisioned credentials email",
				slog.Int("user_id", user.ID), slog.Any("error", err))
		}
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *adminService) ChangeRole(ctx context.Context, userID int, role models.UserRole) error {
	switch role {
	case models.RoleVolunteer, models.RoleCaptain, models.RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidationFailed, role)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.Role == role {
		return nil
	}

	demotedFromCaptain := user.Role == models.RoleCaptain && role != models.RoleCaptain

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdateRole(ctx, tx, userID, role); err != nil {
		return fmt.Errorf("failed to change role of user %d: %w", userID, err)
	}

	var outcomes []SuccessionOutcome
	if demotedFromCaptain {
		outcomes, err = s.teamService.SuccessionOnDeparture(ctx, tx, userID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role change: %w", err)
	}

	s.logger.InfoContext(ctx, "user role changed",
		slog.Int("user_id", userID), slog.String("from", string(user.Role)), slog.String("to", string(role)))
	s.teamService.NotifySuccession(ctx, outcomes)
	return nil
}

func (s *adminService) SetActive(ctx context.Context, userID int, active bool) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.IsActive == active {
		return nil
	}

	deactivatingCaptain := !active && user.Role == models.RoleCaptain

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.SetActive(ctx, tx, userID, active); err != nil {
		return fmt.Errorf("failed to set active flag for user %d: %w", userID, err)
	}

	var outcomes []SuccessionOutcome
	if deactivatingCaptain {
		outcomes, err = s.teamService.SuccessionOnDeparture(ctx, tx, userID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation change: %w", err)
	}

	s.logger.InfoContext(ctx, "user activation changed",
		slog.Int("user_id", userID), slog.Bool("active", active))
	s.teamService.NotifySuccession(ctx, outcomes)
	return nil
}
