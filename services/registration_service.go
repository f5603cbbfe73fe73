package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/metrics"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
)

type RegistrationService interface {
	// Register создаёт заявку на участие. Проверка вместимости выполняется
	// атомарно на стороне БД: при заполненном событии возвращается
	// ErrEventFull независимо от того, что видел клиент.
	Register(ctx context.Context, eventID, userID int) (*models.EventRegistration, error)
	Confirm(ctx context.Context, registrationID int) (*models.EventRegistration, error)
	Cancel(ctx context.Context, registrationID, currentUserID int, isAdmin bool) error
	ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error)
	ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error)
	// AvailableSeats возвращает число свободных мест, никогда не отрицательное.
	AvailableSeats(ctx context.Context, eventID int) (int, error)
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	eventRepo        repositories.EventRepository
	termsRepo        repositories.TermsRepository
	notifier         NotificationService
	logger           *slog.Logger
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	eventRepo repositories.EventRepository,
	termsRepo repositories.TermsRepository,
	notifier NotificationService,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		termsRepo:        termsRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *registrationService) Register(ctx context.Context, eventID, userID int) (*models.EventRegistration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", eventID, err)
	}

	if event.Status != models.EventStatusPublished {
		metrics.RegistrationsRejected.WithLabelValues("not_published").Inc()
		return nil, ErrEventNotPublished
	}

	// Если у события определена форма условий, регистрация возможна только
	// после её принятия.
	questions, err := s.termsRepo.ListQuestionsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check terms schema for event %d: %w", eventID, err)
	}
	if len(questions) > 0 {
		if _, err := s.termsRepo.GetAcceptance(ctx, eventID, userID); err != nil {
			if errors.Is(err, repositories.ErrTermsAcceptanceNotFound) {
				metrics.RegistrationsRejected.WithLabelValues("terms_not_accepted").Inc()
				return nil, ErrTermsNotAccepted
			}
			return nil, fmt.Errorf("failed to check terms acceptance: %w", err)
		}
	}

	registration := &models.EventRegistration{
		EventID: eventID,
		UserID:  userID,
		Status:  models.RegistrationStatusPending,
	}

	if err := s.registrationRepo.CreateWithinCapacity(ctx, registration); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEventCapacityReached):
			metrics.RegistrationsRejected.WithLabelValues("full").Inc()
			return nil, ErrEventFull
		case errors.Is(err, repositories.ErrRegistrationConflict):
			metrics.RegistrationsRejected.WithLabelValues("duplicate").Inc()
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to register user %d for event %d: %w", userID, eventID, err)
	}

	metrics.RegistrationsTotal.Inc()
	s.logger.InfoContext(ctx, "registration created",
		slog.Int("event_id", eventID), slog.Int("user_id", userID), slog.Int("registration_id", registration.ID))
	return registration, nil
}

func (s *registrationService) Confirm(ctx context.Context, registrationID int) (*models.EventRegistration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration %d: %w", registrationID, err)
	}

	if registration.Status == models.RegistrationStatusConfirmed {
		return registration, nil
	}
	if registration.Status != models.RegistrationStatusPending {
		return nil, fmt.Errorf("%w: registration %d is %s", ErrForbiddenOperation, registrationID, registration.Status)
	}

	if err := s.registrationRepo.UpdateStatus(ctx, nil, registrationID, models.RegistrationStatusConfirmed); err != nil {
		return nil, fmt.Errorf("failed to confirm registration %d: %w", registrationID, err)
	}
	registration.Status = models.RegistrationStatusConfirmed

	if err := s.notifier.Notify(ctx, NotifyInput{
		UserID:         registration.UserID,
		Type:           models.NotificationRegistrationConfirmed,
		Title:          "Заявка подтверждена",
		Message:        "Ваша заявка на участие в событии подтверждена.",
		RelatedEventID: &registration.EventID,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify about confirmation",
			slog.Int("registration_id", registrationID), slog.Any("error", err))
	}

	return registration, nil
}

func (s *registrationService) Cancel(ctx context.Context, registrationID, currentUserID int, isAdmin bool) error {
	registration, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to get registration %d: %w", registrationID, err)
	}

	if registration.UserID != currentUserID && !isAdmin {
		return ErrForbiddenOperation
	}
	if !registration.Status.IsActive() {
		return nil
	}

	if err := s.registrationRepo.UpdateStatus(ctx, nil, registrationID, models.RegistrationStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel registration %d: %w", registrationID, err)
	}

	if registration.UserID != currentUserID {
		if err := s.notifier.Notify(ctx, NotifyInput{
			UserID:         registration.UserID,
			Type:           models.NotificationRegistrationCancelled,
			Title:          "Заявка отменена",
			Message:        "Ваша заявка на участие в событии была отменена администратором.",
			RelatedEventID: &registration.EventID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to notify about cancellation",
				slog.Int("registration_id", registrationID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *registrationService) ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error) {
	list, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for event %d: %w", eventID, err)
	}
	for i := range list {
		if list[i].User != nil {
			list[i].User.PasswordHash = ""
		}
	}
	return list, nil
}

func (s *registrationService) ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error) {
	list, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for user %d: %w", userID, err)
	}
	return list, nil
}

func (s *registrationService) AvailableSeats(ctx context.Context, eventID int) (int, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to get event %d: %w", eventID, err)
	}

	active, err := s.registrationRepo.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations for event %d: %w", eventID, err)
	}
	return event.AvailableSeats(active), nil
}
