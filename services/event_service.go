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
	"golang.org/x/sync/errgroup"
)

type EventService interface {
	Create(ctx context.Context, creatorID int, input CreateEventInput) (*models.Event, error)
	GetByID(ctx context.Context, eventID int) (*models.Event, error)
	// GetDetails загружает событие вместе с заявками, командами и вопросами
	// формы условий. Связанные выборки выполняются параллельно.
	GetDetails(ctx context.Context, eventID int) (*models.Event, error)
	Update(ctx context.Context, eventID int, input UpdateEventInput) (*models.Event, error)
	UpdateStatus(ctx context.Context, eventID int, status models.EventStatus) (*models.Event, error)
	Delete(ctx context.Context, eventID int) error
	List(ctx context.Context, filter repositories.EventFilter) ([]models.Event, error)
	UploadImage(ctx context.Context, eventID int, contentType string, reader io.Reader) (*models.Event, error)
	// AutoUpdateEventStatusesByDates переводит published-события с наступившей
	// датой начала в in_progress, а in_progress с прошедшей датой окончания —
	// в completed. Вызывается фоновым планировщиком.
	AutoUpdateEventStatusesByDates(ctx context.Context) error
}

type CreateEventInput struct {
	Title         string              `json:"title" validate:"required,min=1,max=200"`
	Description   *string             `json:"description,omitempty"`
	CategoryID    *int                `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Location      *string             `json:"location,omitempty" validate:"omitempty,max=300"`
	EventDate     time.Time           `json:"event_date" validate:"required"`
	EndDate       time.Time           `json:"end_date" validate:"required"`
	MaxVolunteers int                 `json:"max_volunteers" validate:"required,gt=0"`
	Status        *models.EventStatus `json:"status,omitempty"`
}

type UpdateEventInput struct {
	Title         *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description,omitempty"`
	CategoryID    *int       `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Location      *string    `json:"location,omitempty" validate:"omitempty,max=300"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	MaxVolunteers *int       `json:"max_volunteers,omitempty" validate:"omitempty,gt=0"`
}

type eventService struct {
	eventRepo        repositories.EventRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	categoryRepo     repositories.CategoryRepository
	termsRepo        repositories.TermsRepository
	notifier         NotificationService
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewEventService(
	eventRepo repositories.EventRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	categoryRepo repositories.CategoryRepository,
	termsRepo repositories.TermsRepository,
	notifier NotificationService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		categoryRepo:     categoryRepo,
		termsRepo:        termsRepo,
		notifier:         notifier,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *eventService) Create(ctx context.Context, creatorID int, input CreateEventInput) (*models.Event, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := validateEventDates(input.EventDate, input.EndDate); err != nil {
		return nil, err
	}

	status := models.EventStatusDraft
	if input.Status != nil {
		if *input.Status != models.EventStatusDraft && *input.Status != models.EventStatusPublished {
			return nil, ErrEventInvalidStatus
		}
		status = *input.Status
	}

	event := &models.Event{
		Title:         input.Title,
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		Location:      input.Location,
		EventDate:     input.EventDate,
		EndDate:       input.EndDate,
		MaxVolunteers: input.MaxVolunteers,
		Status:        status,
		CreatedBy:     creatorID,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventCategoryInvalid) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetByID(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", eventID, err)
	}
	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *eventService) GetDetails(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		registrations, err := s.registrationRepo.ListByEvent(gctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}
		event.Registrations = registrations
		return nil
	})

	g.Go(func() error {
		teams, err := s.teamRepo.ListByEvent(gctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		event.Teams = teams
		return nil
	})

	g.Go(func() error {
		questions, err := s.termsRepo.ListQuestionsByEvent(gctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to list terms questions: %w", err)
		}
		event.TermsQuestions = questions
		return nil
	})

	if event.CategoryID != nil {
		categoryID := *event.CategoryID
		g.Go(func() error {
			category, err := s.categoryRepo.GetByID(gctx, categoryID)
			if err != nil {
				// Категория не критична для карточки события.
				s.logger.WarnContext(gctx, "failed to populate event category",
					slog.Int("event_id", eventID), slog.Int("category_id", categoryID), slog.Any("error", err))
				return nil
			}
			populateCategoryImageURL(category, s.uploader)
			event.Category = category
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) Update(ctx context.Context, eventID int, input UpdateEventInput) (*models.Event, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		event.Title = *input.Title
	}
	if input.Description != nil {
		event.Description = input.Description
	}
	if input.CategoryID != nil {
		event.CategoryID = input.CategoryID
	}
	if input.Location != nil {
		event.Location = input.Location
	}
	if input.EventDate != nil {
		event.EventDate = *input.EventDate
	}
	if input.EndDate != nil {
		event.EndDate = *input.EndDate
	}
	if input.MaxVolunteers != nil {
		// Уменьшение вместимости ниже числа активных заявок не допускается.
		if *input.MaxVolunteers < event.ActiveRegistrations {
			return nil, fmt.Errorf("%w: %d active registrations exceed new capacity %d",
				ErrEventInvalidCapacity, event.ActiveRegistrations, *input.MaxVolunteers)
		}
		event.MaxVolunteers = *input.MaxVolunteers
	}

	if err := validateEventDates(event.EventDate, event.EndDate); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventCategoryInvalid) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update event %d: %w", eventID, err)
	}

	s.notifyRegistered(ctx, event, models.NotificationEventUpdated,
		"Событие обновлено", fmt.Sprintf("Детали события «%s» были изменены.", event.Title))

	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *eventService) UpdateStatus(ctx context.Context, eventID int, status models.EventStatus) (*models.Event, error) {
	switch status {
	case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusInProgress,
		models.EventStatusCompleted, models.EventStatusCancelled:
	default:
		return nil, ErrEventInvalidStatus
	}

	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !isValidEventStatusTransition(event.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrEventInvalidStatusTransition, event.Status, status)
	}
	if event.Status == status {
		return event, nil
	}

	if err := s.eventRepo.UpdateStatus(ctx, nil, eventID, status); err != nil {
		return nil, fmt.Errorf("failed to update event %d status: %w", eventID, err)
	}
	event.Status = status

	if status == models.EventStatusCancelled {
		s.notifyRegistered(ctx, event, models.NotificationEventUpdated,
			"Событие отменено", fmt.Sprintf("Событие «%s» было отменено.", event.Title))
	}
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, eventID int) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}

	if event.ImageKey != nil && *event.ImageKey != "" {
		if delErr := s.uploader.Delete(ctx, *event.ImageKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete event image",
				slog.Int("event_id", eventID), slog.String("key", *event.ImageKey), slog.Any("error", delErr))
		}
	}
	return nil
}

func (s *eventService) List(ctx context.Context, filter repositories.EventFilter) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	for i := range events {
		populateEventImageURL(&events[i], s.uploader)
	}
	return events, nil
}

func (s *eventService) UploadImage(ctx context.Context, eventID int, contentType string, reader io.Reader) (*models.Event, error) {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ext, err := getExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("events/%d/%s%s", eventID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload event image: %w", err)
	}

	oldKey := event.ImageKey
	event.ImageKey = &result.Key
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save event image key: %w", err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous event image",
				slog.Int("event_id", eventID), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	populateEventImageURL(event, s.uploader)
	return event, nil
}

func (s *eventService) AutoUpdateEventStatusesByDates(ctx context.Context) error {
	metrics.SchedulerRuns.Inc()

	due, err := s.eventRepo.ListDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to list due events: %w", err)
	}

	for i := range due {
		event := &due[i]
		var next models.EventStatus
		switch event.Status {
		case models.EventStatusPublished:
			next = models.EventStatusInProgress
		case models.EventStatusInProgress:
			next = models.EventStatusCompleted
		default:
			continue
		}

		if err := s.eventRepo.UpdateStatus(ctx, nil, event.ID, next); err != nil {
			s.logger.ErrorContext(ctx, "scheduler failed to update event status",
				slog.Int("event_id", event.ID), slog.String("from", string(event.Status)),
				slog.String("to", string(next)), slog.Any("error", err))
			continue
		}
		s.logger.InfoContext(ctx, "event status updated by scheduler",
			slog.Int("event_id", event.ID), slog.String("from", string(event.Status)), slog.String("to", string(next)))
	}
	return nil
}

// notifyRegistered рассылает уведомление всем пользователям с активной
// заявкой на событие. Ошибки рассылки логируются и не прерывают операцию.
func (s *eventService) notifyRegistered(ctx context.Context, event *models.Event, nType models.NotificationType, title, message string) {
	registrations, err := s.registrationRepo.ListByEvent(ctx, event.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list registrations for notification",
			slog.Int("event_id", event.ID), slog.Any("error", err))
		return
	}
	for _, reg := range registrations {
		if !reg.Status.IsActive() {
			continue
		}
		if err := s.notifier.Notify(ctx, NotifyInput{
			UserID:         reg.UserID,
			Type:           nType,
			Title:          title,
			Message:        message,
			RelatedEventID: &event.ID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to notify registered user",
				slog.Int("event_id", event.ID), slog.Int("user_id", reg.UserID), slog.Any("error", err))
		}
	}
}
