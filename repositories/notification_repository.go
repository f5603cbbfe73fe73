package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Adilbek99/volunteer-system/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, id, userID int) error
	// MarkAllReadFn вызывает SQL-функцию mark_all_notifications_read.
	// При её отсутствии возвращает ErrFunctionNotFound, и сервис падает
	// обратно на MarkAllReadDirect.
	MarkAllReadFn(ctx context.Context, userID int) error
	MarkAllReadDirect(ctx context.Context, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, exec SQLExecutor, notification *models.Notification) error {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}
	query := `
		INSERT INTO notifications (user_id, type, title, message, related_event_id, related_team_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.RelatedEventID,
		notification.RelatedTeamID,
	).Scan(&notification.ID, &notification.CreatedAt)

	if err != nil {
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, read, related_event_id, related_team_id, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read,
			&n.RelatedEventID, &n.RelatedTeamID, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *postgresNotificationRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, classifyPQError(err)
	}
	return count, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return classifyPQError(err)
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllReadFn(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `SELECT mark_all_notifications_read($1)`, userID)
	if err != nil {
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllReadDirect(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return classifyPQError(err)
	}
	return nil
}
