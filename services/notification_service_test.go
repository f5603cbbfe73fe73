package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	notifications []models.Notification
	fnErr         error
	fnCalls       int
	directCalls   int
}

func (r *fakeNotificationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, notification *models.Notification) error {
	notification.ID = len(r.notifications) + 1
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID int) error {
	for i, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllReadFn(ctx context.Context, userID int) error {
	r.fnCalls++
	if r.fnErr != nil {
		return r.fnErr
	}
	return r.MarkAllReadDirect(ctx, userID)
}

func (r *fakeNotificationRepo) MarkAllReadDirect(ctx context.Context, userID int) error {
	r.directCalls++
	for i, n := range r.notifications {
		if n.UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func seedNotifications(repo *fakeNotificationRepo, userID, count int) {
	for i := 0; i < count; i++ {
		repo.notifications = append(repo.notifications, models.Notification{
			ID:     len(repo.notifications) + 1,
			UserID: userID,
			Type:   models.NotificationEventUpdated,
		})
	}
}

func TestNotifyStoresNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, testLogger())

	eventID := 5
	err := svc.Notify(context.Background(), NotifyInput{
		UserID:         42,
		Type:           models.NotificationEventUpdated,
		Title:          "Событие изменено",
		Message:        "Проверьте детали события.",
		RelatedEventID: &eventID,
	})
	require.NoError(t, err)
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, 42, repo.notifications[0].UserID)
	assert.False(t, repo.notifications[0].Read)
}

func TestMarkAllReadUsesFunction(t *testing.T) {
	repo := &fakeNotificationRepo{}
	seedNotifications(repo, 42, 3)
	svc := NewNotificationService(repo, nil, testLogger())

	require.NoError(t, svc.MarkAllRead(context.Background(), 42))
	assert.Equal(t, 1, repo.fnCalls)

	count, err := svc.UnreadCount(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkAllReadFallsBackWhenFunctionMissing(t *testing.T) {
	for _, fnErr := range []error{repositories.ErrFunctionNotFound, repositories.ErrPermissionDenied} {
		t.Run(fnErr.Error(), func(t *testing.T) {
			repo := &fakeNotificationRepo{fnErr: fnErr}
			seedNotifications(repo, 42, 2)
			svc := NewNotificationService(repo, nil, testLogger())

			require.NoError(t, svc.MarkAllRead(context.Background(), 42))
			assert.Equal(t, 1, repo.fnCalls)
			assert.Equal(t, 1, repo.directCalls)

			count, err := svc.UnreadCount(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, 0, count)
		})
	}
}

func TestMarkAllReadDoesNotFallBackOnOtherErrors(t *testing.T) {
	repo := &fakeNotificationRepo{fnErr: errors.New("connection reset")}
	svc := NewNotificationService(repo, nil, testLogger())

	err := svc.MarkAllRead(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, 0, repo.directCalls)
}

func TestListClampsLimit(t *testing.T) {
	repo := &fakeNotificationRepo{}
	seedNotifications(repo, 42, 60)
	svc := NewNotificationService(repo, nil, testLogger())

	// Нулевой и отрицательный лимит заменяются значением по умолчанию.
	list, err := svc.List(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Len(t, list, 50)

	list, err = svc.List(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}
