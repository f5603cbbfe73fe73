package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/metrics"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/notifications"
	"github.com/Adilbek99/volunteer-system/repositories"
)

const defaultNotificationLimit = 50

type NotifyInput struct {
	UserID         int
	Type           models.NotificationType
	Title          string
	Message        string
	RelatedEventID *int
	RelatedTeamID  *int
}

type NotificationService interface {
	// Notify сохраняет уведомление и сразу доставляет его по WebSocket.
	// Пользователи без активного подключения получат его при следующем
	// REST-запросе списка.
	Notify(ctx context.Context, input NotifyInput) error
	List(ctx context.Context, userID int, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	hub              *notifications.Hub
	logger           *slog.Logger
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	hub *notifications.Hub,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		hub:              hub,
		logger:           logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, input NotifyInput) error {
	notification := &models.Notification{
		UserID:         input.UserID,
		Type:           input.Type,
		Title:          input.Title,
		Message:        input.Message,
		RelatedEventID: input.RelatedEventID,
		RelatedTeamID:  input.RelatedTeamID,
	}

	if err := s.notificationRepo.Create(ctx, nil, notification); err != nil {
		return fmt.Errorf("failed to create notification for user %d: %w", input.UserID, err)
	}

	if s.hub != nil {
		s.hub.PushToUser(input.UserID, notifications.Message{
			Type:    "NOTIFICATION_CREATED",
			Payload: notification,
		})
		metrics.NotificationsPushed.Inc()
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	list, err := s.notificationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", userID, err)
	}
	return list, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int) error {
	if err := s.notificationRepo.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification %d read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead сначала вызывает SQL-функцию mark_all_notifications_read.
// В базах без неё (код 42883) или без прав на выполнение (42501) выполняется
// прямой UPDATE с тем же результатом.
func (s *notificationService) MarkAllRead(ctx context.Context, userID int) error {
	err := s.notificationRepo.MarkAllReadFn(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrFunctionNotFound) && !errors.Is(err, repositories.ErrPermissionDenied) {
		return fmt.Errorf("failed to mark all notifications read for user %d: %w", userID, err)
	}

	s.logger.WarnContext(ctx, "mark_all_notifications_read unavailable, falling back to direct update",
		slog.Int("user_id", userID), slog.Any("error", err))

	if err := s.notificationRepo.MarkAllReadDirect(ctx, userID); err != nil {
		return fmt.Errorf("fallback mark all read failed for user %d: %w", userID, err)
	}
	return nil
}
