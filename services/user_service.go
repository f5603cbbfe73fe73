package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adilbek99/volunteer-system/metrics"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/Adilbek99/volunteer-system/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Полное чтение профиля ограничено дедлайном: медленная БД не должна
	// блокировать страницу профиля. По истечении выполняется деградированное
	// чтение минимального набора колонок.
	profileReadTimeout  = 2 * time.Second
	degradedReadTimeout = 500 * time.Millisecond
)

type UserService interface {
	// GetProfile возвращает профиль пользователя. Второе значение истинно,
	// когда полный запрос не уложился в дедлайн и профиль собран из
	// деградированного чтения (без данных транспорта, токенов и аватара).
	GetProfile(ctx context.Context, userID int) (*models.User, bool, error)
	GetByID(ctx context.Context, userID int) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error
	UploadAvatar(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error)
	CompleteFirstLogin(ctx context.Context, userID int) error
}

type UpdateProfileInput struct {
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	VehicleModel *string `json:"vehicle_model,omitempty" validate:"omitempty,max=100"`
	VehiclePlate *string `json:"vehicle_plate,omitempty" validate:"omitempty,max=20"`
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, bool, error) {
	fullCtx, cancel := context.WithTimeout(ctx, profileReadTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(fullCtx, userID)
	if err == nil {
		populateUserDetails(user, s.uploader)
		return user, false, nil
	}
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, ErrUserNotFound
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return nil, false, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	// Полный запрос не уложился в дедлайн, пробуем минимальное чтение.
	s.logger.WarnContext(ctx, "profile read exceeded deadline, falling back to basic read",
		slog.Int("user_id", userID), slog.Duration("deadline", profileReadTimeout))

	basicCtx, cancelBasic := context.WithTimeout(ctx, degradedReadTimeout)
	defer cancelBasic()

	basic, basicErr := s.userRepo.GetBasicByID(basicCtx, userID)
	if basicErr != nil {
		if errors.Is(basicErr, repositories.ErrUserNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("degraded profile read for user %d: %w", userID, basicErr)
	}

	metrics.DegradedProfileReads.Inc()
	populateUserDetails(basic, s.uploader)
	return basic, true, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	populateUserDetails(user, s.uploader)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.VehicleModel != nil {
		user.VehicleModel = strPtr(*input.VehicleModel)
	}
	if input.VehiclePlate != nil {
		user.VehiclePlate = strPtr(*input.VehiclePlate)
	}

	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}

	populateUserDetails(user, s.uploader)
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	// Смена временного пароля любым путём завершает первый вход.
	user.IsFirstLogin = false

	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", userID, err)
	}
	return nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	ext, err := getExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %d: %w", userID, err)
	}

	oldKey := user.AvatarKey
	user.AvatarKey = &result.Key
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to save avatar key for user %d: %w", userID, err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous avatar",
				slog.Int("user_id", userID), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	populateUserDetails(user, s.uploader)
	return user, nil
}

func (s *userService) List(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		populateUserDetails(&users[i], s.uploader)
	}

	return &models.UserListResponse{
		Users:      users,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *userService) CompleteFirstLogin(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if !user.IsFirstLogin {
		return nil
	}
	user.IsFirstLogin = false
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to clear first login flag for user %d: %w", userID, err)
	}
	return nil
}
