package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
)

type EvaluationService interface {
	// CreatePeer сохраняет взаимную оценку участников завершённого события.
	CreatePeer(ctx context.Context, evaluatorID int, input PeerEvaluationInput) (*models.Evaluation, error)
	CreateAdmin(ctx context.Context, adminID int, input AdminEvaluationInput) (*models.AdminEvaluation, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.Evaluation, error)
	ListReceivedByUser(ctx context.Context, userID int) ([]models.Evaluation, error)
	ListAdminByUser(ctx context.Context, userID int) ([]models.AdminEvaluation, error)
}

type PeerEvaluationInput struct {
	EventID     int     `json:"event_id" validate:"required,gt=0"`
	EvaluatedID int     `json:"evaluated_id" validate:"required,gt=0"`
	Punctuality int     `json:"punctuality" validate:"required,min=1,max=5"`
	Teamwork    int     `json:"teamwork" validate:"required,min=1,max=5"`
	Attitude    int     `json:"attitude" validate:"required,min=1,max=5"`
	Comment     *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

type AdminEvaluationInput struct {
	EventID int     `json:"event_id" validate:"required,gt=0"`
	UserID  int     `json:"user_id" validate:"required,gt=0"`
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

type evaluationService struct {
	evaluationRepo   repositories.EvaluationRepository
	eventRepo        repositories.EventRepository
	registrationRepo repositories.RegistrationRepository
	notifier         NotificationService
	logger           *slog.Logger
}

func NewEvaluationService(
	evaluationRepo repositories.EvaluationRepository,
	eventRepo repositories.EventRepository,
	registrationRepo repositories.RegistrationRepository,
	notifier NotificationService,
	logger *slog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluationRepo:   evaluationRepo,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *evaluationService) CreatePeer(ctx context.Context, evaluatorID int, input PeerEvaluationInput) (*models.Evaluation, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if input.EvaluatedID == evaluatorID {
		return nil, ErrSelfEvaluation
	}

	event, err := s.eventRepo.GetByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", input.EventID, err)
	}
	if event.Status != models.EventStatusCompleted {
		return nil, ErrEventNotCompleted
	}

	// Оценивать и быть оценённым могут только участники события.
	for _, userID := range []int{evaluatorID, input.EvaluatedID} {
		if _, err := s.registrationRepo.FindActiveByEventAndUser(ctx, input.EventID, userID); err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return nil, ErrUserNotRegistered
			}
			return nil, fmt.Errorf("failed to check registration of user %d: %w", userID, err)
		}
	}

	evaluation := &models.Evaluation{
		EventID:     input.EventID,
		EvaluatorID: evaluatorID,
		EvaluatedID: input.EvaluatedID,
		Punctuality: input.Punctuality,
		Teamwork:    input.Teamwork,
		Attitude:    input.Attitude,
		Comment:     input.Comment,
	}

	if err := s.evaluationRepo.Create(ctx, evaluation); err != nil {
		if errors.Is(err, repositories.ErrEvaluationConflict) {
			return nil, ErrEvaluationConflict
		}
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}

	if err := s.notifier.Notify(ctx, NotifyInput{
		UserID:         input.EvaluatedID,
		Type:           models.NotificationEvaluationReceived,
		Title:          "Новая оценка",
		Message:        "Участник события оценил вашу работу.",
		RelatedEventID: &input.EventID,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify about evaluation",
			slog.Int("event_id", input.EventID), slog.Int("user_id", input.EvaluatedID), slog.Any("error", err))
	}

	return evaluation, nil
}

func (s *evaluationService) CreateAdmin(ctx context.Context, adminID int, input AdminEvaluationInput) (*models.AdminEvaluation, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	event, err := s.eventRepo.GetByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", input.EventID, err)
	}
	if event.Status != models.EventStatusCompleted {
		return nil, ErrEventNotCompleted
	}

	evaluation := &models.AdminEvaluation{
		EventID: input.EventID,
		UserID:  input.UserID,
		AdminID: adminID,
		Rating:  input.Rating,
		Comment: input.Comment,
	}

	if err := s.evaluationRepo.CreateAdmin(ctx, evaluation); err != nil {
		if errors.Is(err, repositories.ErrEvaluationConflict) {
			return nil, ErrEvaluationConflict
		}
		return nil, fmt.Errorf("failed to create admin evaluation: %w", err)
	}

	if err := s.notifier.Notify(ctx, NotifyInput{
		UserID:         input.UserID,
		Type:           models.NotificationEvaluationReceived,
		Title:          "Оценка администратора",
		Message:        "Администратор оценил вашу работу на событии.",
		RelatedEventID: &input.EventID,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify about admin evaluation",
			slog.Int("event_id", input.EventID), slog.Int("user_id", input.UserID), slog.Any("error", err))
	}

	return evaluation, nil
}

func (s *evaluationService) ListByEvent(ctx context.Context, eventID int) ([]models.Evaluation, error) {
	list, err := s.evaluationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for event %d: %w", eventID, err)
	}
	return list, nil
}

func (s *evaluationService) ListReceivedByUser(ctx context.Context, userID int) ([]models.Evaluation, error) {
	list, err := s.evaluationRepo.ListReceivedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations received by user %d: %w", userID, err)
	}
	return list, nil
}

func (s *evaluationService) ListAdminByUser(ctx context.Context, userID int) ([]models.AdminEvaluation, error) {
	list, err := s.evaluationRepo.ListAdminByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin evaluations for user %d: %w", userID, err)
	}
	return list, nil
}
